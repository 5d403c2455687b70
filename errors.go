package httpwire

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorHdr is a low level parser error code. It is returned by every
// parsing function in this package instead of the stdlib error
// interface so that the hot parsing path never allocates.
type ErrorHdr uint8

// Parser error codes.
const (
	ErrHdrOk           ErrorHdr = iota // no error, parsing finished
	ErrHdrMoreBytes                    // more input needed, call again
	ErrHdrMoreValues                   // one value parsed, more remain
	ErrHdrEmpty                        // empty header line (end of headers)
	ErrHdrEOH                          // end of header value reached
	ErrHdrBadChar                      // unexpected/disallowed character
	ErrHdrHeaderTooLarge               // accumulated header bytes > MaxHeaderSize
	ErrHdrNoCLen                       // Content-Length required but missing
	ErrHdrValNotNumber                 // expected a number, got garbage
	ErrHdrNumTooBig                    // numeric value overflowed
	ErrHdrChunkBadSize                 // malformed chunk size line
	ErrHdrBodyMismatch                 // body byte count did not match framing
	ErrHdrTrunc                        // connection closed mid-message
	ErrHdrBug                          // internal inconsistency
)

var errHdrName = [...]string{
	ErrHdrOk:             "ok",
	ErrHdrMoreBytes:      "more bytes needed",
	ErrHdrMoreValues:     "more values",
	ErrHdrEmpty:          "empty header",
	ErrHdrEOH:            "end of header",
	ErrHdrBadChar:        "unexpected character",
	ErrHdrHeaderTooLarge: "header too large",
	ErrHdrNoCLen:         "missing content-length",
	ErrHdrValNotNumber:   "value is not a number",
	ErrHdrNumTooBig:      "number too big",
	ErrHdrChunkBadSize:   "invalid chunk size",
	ErrHdrBodyMismatch:   "body length mismatch",
	ErrHdrTrunc:          "message truncated",
	ErrHdrBug:            "internal parser error",
}

// String implements fmt.Stringer, returning the human readable name
// used inside HttpError("parse error: <name>").
func (e ErrorHdr) String() string {
	if int(e) >= len(errHdrName) {
		return "unknown"
	}
	return errHdrName[e]
}

// Kind classifies an HttpError: parse failures, usage mistakes made by
// the calling application, handler bugs and timeouts are reported and
// handled differently (see Connection).
type Kind uint8

const (
	KindParse Kind = iota
	KindNotConnected
	KindUsage
	KindHandler
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindNotConnected:
		return "not connected"
	case KindUsage:
		return "usage error"
	case KindHandler:
		return "handler error"
	case KindTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// HttpError is the error type returned to application code for every
// failure originating in this package.
type HttpError struct {
	Kind Kind
	msg  string
	// cause, when set, is the underlying ErrorHdr or transport error
	// that triggered this HttpError; kept so callers can unwrap and
	// branch on errors.As/errors.Is against the stdlib error chain.
	cause error
}

func (e *HttpError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("httpwire: %s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("httpwire: %s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is/errors.As reach the underlying cause.
func (e *HttpError) Unwrap() error {
	return e.cause
}

// newParseError builds the "parse error: <name>" HttpError, wrapping
// the raw ErrorHdr with a stack trace via pkg/errors so
// connection-controller logs retain the call site.
func newParseError(code ErrorHdr) *HttpError {
	return &HttpError{
		Kind: KindParse,
		msg:  fmt.Sprintf("parse error: %s", code),
		cause: pkgerrors.WithStack(&parseCause{code: code}),
	}
}

type parseCause struct{ code ErrorHdr }

func (p *parseCause) Error() string { return p.code.String() }

// Code returns the underlying ErrorHdr of a parse HttpError, or
// ErrHdrOk if err is not a parse error produced by this package.
func Code(err error) ErrorHdr {
	he, ok := err.(*HttpError)
	if !ok || he.Kind != KindParse {
		return ErrHdrOk
	}
	if pc, ok := pkgerrors.Cause(he.cause).(*parseCause); ok {
		return pc.code
	}
	return ErrHdrOk
}

func newUsageError(format string, args ...interface{}) *HttpError {
	return &HttpError{Kind: KindUsage, msg: fmt.Sprintf(format, args...)}
}

func newHandlerError(format string, args ...interface{}) *HttpError {
	return &HttpError{Kind: KindHandler, msg: fmt.Sprintf(format, args...)}
}

func newNotConnectedError() *HttpError {
	return &HttpError{Kind: KindNotConnected, msg: "not connected"}
}

func newTimeoutError() *HttpError {
	return &HttpError{Kind: KindTimeout, msg: "timed out waiting for response"}
}

func wrapTransportError(err error) *HttpError {
	return &HttpError{Kind: KindParse, msg: "transport error", cause: pkgerrors.WithStack(err)}
}
