package httpwire

import "strings"

// MsgKind distinguishes a request Message from a response Message.
type MsgKind uint8

const (
	MsgRequest MsgKind = iota
	MsgResponse
)

// Message is a fully, or partially, parsed HTTP request or response.
// It is produced by the Parser (via Connection's EventSink
// implementation) and handed to application code once its headers are
// complete; Body may still be filling in while the caller reads it.
type Message struct {
	Kind MsgKind

	// common to both kinds
	Major, Minor int
	Headers      HeaderList
	Trailers     HeaderList
	IsUpgrade    bool
	ShouldKeepAlive bool
	Body         *BodyStream

	// request only
	Method    HTTPMethod
	MethodRaw string
	URL       string
	Path      string
	Query     string

	// response only
	StatusCode int
	Reason     string
}

// Request reports whether the message is a request.
func (m *Message) Request() bool { return m.Kind == MsgRequest }

// Version renders the HTTP version as "1.0" or "1.1".
func (m *Message) Version() string {
	if m.Minor == 0 {
		return "1.0"
	}
	return "1.1"
}

// GetHeader returns the first header value matching name, or def.
func (m *Message) GetHeader(name, def string) string {
	return GetField(m.Headers, name, def)
}

// GetTrailer returns the first trailer value matching name, or def.
func (m *Message) GetTrailer(name, def string) string {
	return GetField(m.Trailers, name, def)
}

// splitPathQuery splits a request URL into its path and query parts.
// Full URL resolution against a base URL is out of scope; this is a
// plain split on the first '?'.
func splitPathQuery(url string) (path, query string) {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i], url[i+1:]
	}
	return url, ""
}
