package httpwire

import "github.com/intuitivelabs/bytescase"

// ParserType selects whether a Parser reads requests or responses, set
// once at construction and never changed afterward.
type ParserType uint8

const (
	ParseRequest ParserType = iota
	ParseResponse
)

// EventSink receives the streaming events a Parser emits while it
// consumes bytes. Implementations never block: parser callbacks only
// enqueue work. Connection is the EventSink used in practice; tests may
// supply a recording fake.
//
// Events fire in message order. OnHeadersComplete must return 0 if a
// body follows, 1 if this is a HEAD response (no body ever, regardless
// of framing headers) or 2 to abort parsing with a fatal error.
type EventSink interface {
	OnMessageBegin()
	OnURL(p []byte)
	OnHeaderField(name []byte)
	OnHeaderValue(value []byte)
	OnHeadersComplete(m *headInfo) int
	OnBody(p []byte)
	OnTrailerField(name []byte)
	OnTrailerValue(value []byte)
	OnMessageComplete()
}

// headInfo carries everything the parser determined about a message's
// first line and body framing at the headers-complete event, so the
// EventSink does not need to re-derive it from raw header bytes.
type headInfo struct {
	Major, Minor    int
	Method          HTTPMethod
	MethodRaw       string
	URL             string
	StatusCode      int
	Reason          string
	ShouldKeepAlive bool
	IsUpgrade       bool
}

// parser internal states.
type pState uint8

const (
	sDead pState = iota
	sStart
	sReqMethod
	sReqURL
	sReqVersion
	sRespVersion
	sRespStatus
	sRespReason
	sFLineCR
	sFLineLF
	sHeaderLineStart
	sHeaderName
	sHeaderNameOWS
	sHeaderColonOWS
	sHeaderValue
	sHeaderValueCR
	sHeadersAlmostDone
	sBodyIdentity
	sBodyIdentityEOF
	sChunkSizeStart
	sChunkSize
	sChunkExt
	sChunkSizeCR
	sChunkSizeLF
	sChunkData
	sChunkDataCR
	sChunkDataLF
	sChunkTrailerStart // reuses sHeaderLineStart-shaped states, see below
	sMessageDone
)

// bodyMode classifies how the current message's body is delimited.
type bodyMode uint8

const (
	bodyNone bodyMode = iota
	bodyIdentity
	bodyChunked
	bodyEOF
)

// Parser is the incremental, push-fed HTTP/1.x message parser. Feed it
// bytes with Execute; it never buffers more than the current header's
// name/value (bounded by MaxHeaderSize) and never retains the buffer
// passed to Execute beyond the call.
type Parser struct {
	typ  ParserType
	sink EventSink

	maxHeaderSize int
	headerBytes   int // running total for the current message

	state    pState
	bodyMode bodyMode

	// first line accumulation (small, bounded by maxHeaderSize too)
	acc []byte

	major, minor int
	method       HTTPMethod
	methodRaw    []byte
	statusCode   int
	reason       []byte

	// header accumulation
	curName    []byte
	curValue   []byte
	inTrailers bool

	// Connection/Transfer-Encoding/Content-Length bookkeeping, derived
	// from completed header values as they arrive.
	sawConnectionClose     bool
	sawConnectionKeepAlive bool
	sawConnectionUpgrade   bool
	sawUpgrade             bool
	sawChunked             bool
	sawContentLength       bool
	contentLength          int64

	// body bookkeeping
	bodyRemaining int64
	noBodyHint    int // cached OnHeadersComplete() return value

	// chunk bookkeeping
	chunkSize    int64
	chunkHaveExt bool

	// previous-request method, consulted for HEAD replies; set by the
	// caller via SetPrevMethod before feeding a response.
	prevMethod HTTPMethod
}

// NewParser creates a Parser of the given type, reporting events to
// sink. maxHeaderSize bounds the total bytes (URL + header names +
// header values) accepted for one message before ErrHdrHeaderTooLarge.
func NewParser(typ ParserType, sink EventSink, maxHeaderSize int) *Parser {
	return &Parser{typ: typ, sink: sink, maxHeaderSize: maxHeaderSize, state: sStart}
}

// SetPrevMethod tells a ParseResponse parser which request method the
// next response answers, so that a response to HEAD is read with no
// body (rule 1). Responses to CONNECT are not special-cased. Requests
// ignore it.
func (p *Parser) SetPrevMethod(m HTTPMethod) {
	p.prevMethod = m
}

// reset returns the parser to its initial state, ready for a new
// message on the same connection (used after OnMessageComplete).
func (p *Parser) reset() {
	p.state = sStart
	p.bodyMode = bodyNone
	p.headerBytes = 0
	p.acc = p.acc[:0]
	p.major, p.minor = 0, 0
	p.method = MUndef
	p.methodRaw = p.methodRaw[:0]
	p.statusCode = 0
	p.reason = p.reason[:0]
	p.curName = p.curName[:0]
	p.curValue = p.curValue[:0]
	p.inTrailers = false
	p.sawConnectionClose = false
	p.sawConnectionKeepAlive = false
	p.sawConnectionUpgrade = false
	p.sawUpgrade = false
	p.sawChunked = false
	p.sawContentLength = false
	p.contentLength = 0
	p.bodyRemaining = 0
	p.noBodyHint = 0
	p.chunkSize = 0
	p.chunkHaveExt = false
}

func (p *Parser) addHeaderBytes(n int) ErrorHdr {
	p.headerBytes += n
	if p.headerBytes > p.maxHeaderSize {
		return ErrHdrHeaderTooLarge
	}
	return ErrHdrOk
}

// Execute feeds data (possibly empty, to signal a clean or unexpected
// EOF) to the parser. It returns the number of bytes consumed and
// ErrHdrOk, or the offset and error code at which a fatal parse error
// occurred.
func (p *Parser) Execute(data []byte) (int, ErrorHdr) {
	if len(data) == 0 {
		return p.feedEOF()
	}
	i := 0
	for i < len(data) {
		n, err := p.step(data, i)
		if err == ErrHdrMoreBytes {
			// the step consumed the rest of data; the next Execute call
			// resumes from the saved state
			return n, ErrHdrOk
		}
		if err != ErrHdrOk {
			return n, err
		}
		i = n
	}
	return i, ErrHdrOk
}

// feedEOF signals connection loss to the parser. A message with no
// declared length legitimately ends on EOF (bodyEOF); anything else
// mid-message is a truncation.
func (p *Parser) feedEOF() (int, ErrorHdr) {
	switch p.state {
	case sStart, sMessageDone:
		return 0, ErrHdrOk // clean: no message was in progress
	case sBodyIdentityEOF:
		p.sink.OnMessageComplete()
		p.state = sStart
		p.reset()
		return 0, ErrHdrOk
	default:
		return 0, ErrHdrTrunc
	}
}

// step advances the state machine starting at data[i], returning the
// next offset to resume from. Some transitions (message begin, header
// line start, message done) consume no bytes.
func (p *Parser) step(data []byte, i int) (int, ErrorHdr) {
	switch p.state {
	case sStart:
		p.sink.OnMessageBegin()
		p.acc = p.acc[:0]
		if p.typ == ParseRequest {
			p.state = sReqMethod
		} else {
			p.state = sRespVersion
		}
		return i, ErrHdrOk

	case sReqMethod:
		return p.scanFLineToken(data, i, ' ', sReqURL, func(tok []byte) ErrorHdr {
			p.method = GetMethodNo(tok)
			p.methodRaw = append(p.methodRaw, tok...)
			return ErrHdrOk
		})

	case sReqURL:
		return p.scanFLineToken(data, i, ' ', sReqVersion, func(tok []byte) ErrorHdr {
			p.sink.OnURL(tok)
			return ErrHdrOk
		})

	case sReqVersion:
		end, ok := scanUntilCRLFStart(data, i)
		if !ok {
			return p.accumulateFLine(data, i)
		}
		p.acc = append(p.acc, data[i:end]...)
		if err := p.parseVersionToken(p.acc); err != ErrHdrOk {
			return end, err
		}
		p.acc = p.acc[:0]
		p.state = sFLineCR
		return end, ErrHdrOk

	case sRespVersion:
		end, ok := scanByte(data, i, ' ')
		if !ok {
			return p.accumulateFLine(data, i)
		}
		p.acc = append(p.acc, data[i:end]...)
		if err := p.parseVersionToken(p.acc); err != ErrHdrOk {
			return end, err
		}
		p.acc = p.acc[:0]
		p.state = sRespStatus
		return end + 1, ErrHdrOk

	case sRespStatus:
		if len(p.acc)+len(data)-i < 3 {
			p.acc = append(p.acc, data[i:]...)
			return len(data), ErrHdrMoreBytes
		}
		full := append(append([]byte{}, p.acc...), data[i:]...)
		if len(full) < 3 {
			return len(data), ErrHdrMoreBytes
		}
		code := 0
		for _, c := range full[:3] {
			v, ok := decDigitVal(c)
			if !ok {
				return i, ErrHdrBadChar
			}
			code = code*10 + int(v)
		}
		p.statusCode = code
		consumed := 3 - len(p.acc)
		p.acc = p.acc[:0]
		p.state = sRespReason
		// a single space is expected before the reason phrase; tolerate
		// its absence (some servers omit the reason entirely).
		j := i + consumed
		if j < len(data) && data[j] == ' ' {
			j++
		}
		return j, ErrHdrOk

	case sRespReason:
		end, ok := scanUntilCRLFStart(data, i)
		if !ok {
			if err := p.addHeaderBytes(len(data) - i); err != ErrHdrOk {
				return i, err
			}
			p.reason = append(p.reason, data[i:]...)
			return len(data), ErrHdrMoreBytes
		}
		if err := p.addHeaderBytes(end - i); err != ErrHdrOk {
			return i, err
		}
		p.reason = append(p.reason, data[i:end]...)
		p.state = sFLineCR
		return end, ErrHdrOk

	case sFLineCR:
		return p.expectCR(data, i, sFLineLF)

	case sFLineLF:
		return p.expectLF(data, i, sHeaderLineStart)

	case sHeaderLineStart:
		return p.headerLineStart(data, i)

	case sHeaderName:
		return p.scanHeaderName(data, i)

	case sHeaderNameOWS:
		return p.scanHeaderNameOWS(data, i)

	case sHeaderColonOWS:
		return p.scanHeaderColonOWS(data, i)

	case sHeaderValue:
		return p.scanHeaderValue(data, i)

	case sHeaderValueCR:
		return p.expectCR(data, i, sHeadersAlmostDone)

	case sHeadersAlmostDone:
		return p.expectLF(data, i, sDead) // expectLF maps sDead to sHeaderLineStart

	case sBodyIdentity:
		return p.readIdentityBody(data, i)

	case sBodyIdentityEOF:
		n := p.sink
		n.OnBody(data[i:])
		return len(data), ErrHdrOk

	case sChunkSizeStart, sChunkSize, sChunkExt:
		return p.scanChunkSize(data, i)

	case sChunkSizeCR:
		return p.expectCR(data, i, sChunkSizeLF)

	case sChunkSizeLF:
		if data[i] != '\n' {
			return i, ErrHdrBadChar
		}
		return p.afterChunkSizeLF(data, i+1)

	case sChunkData:
		return p.readChunkData(data, i)

	case sChunkDataCR:
		return p.expectCR(data, i, sChunkDataLF)

	case sChunkDataLF:
		if data[i] != '\n' {
			return i, ErrHdrBadChar
		}
		p.state = sChunkSizeStart
		return i + 1, ErrHdrOk

	case sMessageDone:
		p.reset()
		return i, ErrHdrOk

	default:
		return i, ErrHdrBug
	}
}

// scanFLineToken scans a run of non-sep bytes (the method or the URL),
// tolerating the run being split across Execute calls via p.acc.
func (p *Parser) scanFLineToken(data []byte, i int, sep byte, next pState, finish func([]byte) ErrorHdr) (int, ErrorHdr) {
	end, ok := scanByte(data, i, sep)
	if !ok {
		return p.accumulateFLine(data, i)
	}
	var tok []byte
	if len(p.acc) > 0 {
		tok = append(p.acc, data[i:end]...)
	} else {
		tok = data[i:end]
	}
	if len(tok) == 0 {
		return end, ErrHdrBadChar
	}
	if err := p.addHeaderBytes(end - i); err != ErrHdrOk {
		return i, err
	}
	if err := finish(tok); err != ErrHdrOk {
		return end, err
	}
	p.acc = p.acc[:0]
	p.state = next
	return end + 1, ErrHdrOk
}

func (p *Parser) accumulateFLine(data []byte, i int) (int, ErrorHdr) {
	if err := p.addHeaderBytes(len(data) - i); err != ErrHdrOk {
		return i, err
	}
	p.acc = append(p.acc, data[i:]...)
	return len(data), ErrHdrMoreBytes
}

func (p *Parser) parseVersionToken(tok []byte) ErrorHdr {
	// expects "HTTP/<major>.<minor>"
	const pfx = "HTTP/"
	if len(tok) < len(pfx)+3 || !bytescase.CmpEq(tok[:len(pfx)], []byte(pfx)) {
		return ErrHdrBadChar
	}
	rest := tok[len(pfx):]
	dot := -1
	for i, c := range rest {
		if c == '.' {
			dot = i
			break
		}
	}
	if dot <= 0 || dot == len(rest)-1 {
		return ErrHdrBadChar
	}
	maj, ok := parseDigits(rest[:dot])
	if !ok {
		return ErrHdrBadChar
	}
	min, ok := parseDigits(rest[dot+1:])
	if !ok {
		return ErrHdrBadChar
	}
	p.major, p.minor = int(maj), int(min)
	return ErrHdrOk
}

func parseDigits(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		d, ok := decDigitVal(c)
		if !ok {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}

func (p *Parser) expectCR(data []byte, i int, next pState) (int, ErrorHdr) {
	if data[i] == '\r' {
		p.state = next
		return i + 1, ErrHdrOk
	}
	if data[i] == '\n' {
		// bare LF accepted as a line ending, matching how widely deployed
		// HTTP/1.x implementations tolerate a lone LF in place of CRLF.
		p.state = next
		return p.step(data, i) // re-dispatch; next state's expectLF sees '\n'
	}
	return i, ErrHdrBadChar
}

func (p *Parser) expectLF(data []byte, i int, next pState) (int, ErrorHdr) {
	if data[i] != '\n' {
		return i, ErrHdrBadChar
	}
	switch next {
	case sHeaderLineStart:
		p.state = sHeaderLineStart
	default:
		// sHeadersAlmostDone's "next" placeholder (sDead) means: a
		// header line just ended, proceed to the next header line.
		p.state = sHeaderLineStart
	}
	return i + 1, ErrHdrOk
}

// headerLineStart looks at the first byte of a header line: CR/LF means
// end of the header block (or trailer block).
func (p *Parser) headerLineStart(data []byte, i int) (int, ErrorHdr) {
	c := data[i]
	if c == '\r' || c == '\n' {
		return p.endOfHeaderBlock(data, i)
	}
	p.curName = p.curName[:0]
	p.state = sHeaderName
	return i, ErrHdrOk
}

func (p *Parser) endOfHeaderBlock(data []byte, i int) (int, ErrorHdr) {
	j := i
	if data[j] == '\r' {
		j++
		if j >= len(data) {
			return len(data), ErrHdrMoreBytes
		}
	}
	if data[j] != '\n' {
		return j, ErrHdrBadChar
	}
	j++
	if p.inTrailers {
		p.sink.OnMessageComplete()
		p.state = sMessageDone
		return j, ErrHdrOk
	}
	return j, p.finishHeaders(j)
}

func (p *Parser) finishHeaders(next int) ErrorHdr {
	hi := &headInfo{
		Major: p.major, Minor: p.minor,
		Method: p.method, MethodRaw: string(p.methodRaw),
		StatusCode: p.statusCode, Reason: string(p.reason),
	}
	hi.ShouldKeepAlive, hi.IsUpgrade = p.computeKeepAlive()
	ret := p.sink.OnHeadersComplete(hi)
	if ret == 2 {
		return ErrHdrBug
	}
	p.noBodyHint = ret
	p.bodyMode = p.determineBodyMode()
	switch p.bodyMode {
	case bodyNone:
		p.sink.OnMessageComplete()
		p.state = sMessageDone
	case bodyIdentity:
		if ret == 1 || p.bodyRemainingIsZero() {
			p.sink.OnMessageComplete()
			p.state = sMessageDone
		} else {
			p.state = sBodyIdentity
		}
	case bodyChunked:
		if ret == 1 {
			p.sink.OnMessageComplete()
			p.state = sMessageDone
		} else {
			p.state = sChunkSizeStart
		}
	case bodyEOF:
		if ret == 1 {
			p.sink.OnMessageComplete()
			p.state = sMessageDone
		} else {
			p.state = sBodyIdentityEOF
		}
	}
	return ErrHdrOk
}

func (p *Parser) bodyRemainingIsZero() bool {
	p.bodyRemaining = p.contentLength
	return p.bodyRemaining == 0
}

// determineBodyMode decides how the current message's body is
// delimited: chunked transfer-coding takes priority over
// Content-Length, HEAD/1xx/204/304 responses never have a body, and a
// response with neither framing header is read until the peer closes.
func (p *Parser) determineBodyMode() bodyMode {
	if p.typ == ParseResponse {
		if (p.statusCode > 99 && p.statusCode < 200) ||
			p.statusCode == 204 || p.statusCode == 304 ||
			p.prevMethod == MHead {
			return bodyNone
		}
	}
	if p.sawChunked {
		return bodyChunked
	}
	if p.sawContentLength {
		p.bodyRemaining = p.contentLength
		return bodyIdentity
	}
	if p.typ == ParseResponse {
		return bodyEOF
	}
	return bodyNone
}

// computeKeepAlive decides the keep-alive and upgrade state of the
// message just parsed: an explicit Connection: close always wins,
// HTTP/1.0 defaults to close unless Connection: keep-alive was seen,
// and HTTP/1.1 defaults to keep-alive.
func (p *Parser) computeKeepAlive() (keepAlive, upgrade bool) {
	switch {
	case p.sawConnectionClose:
		keepAlive = false
	case p.minor == 0:
		keepAlive = p.sawConnectionKeepAlive
	default:
		keepAlive = true
	}
	upgrade = p.sawConnectionUpgrade && p.sawUpgrade
	return
}

func (p *Parser) scanHeaderName(data []byte, i int) (int, ErrorHdr) {
	start := i
	for i < len(data) {
		c := data[i]
		if c == ':' {
			if err := p.addHeaderBytes(i - start); err != ErrHdrOk {
				return start, err
			}
			p.curName = append(p.curName, data[start:i]...)
			if len(p.curName) == 0 {
				return i, ErrHdrBadChar
			}
			p.curValue = p.curValue[:0]
			p.state = sHeaderColonOWS
			return i + 1, ErrHdrOk
		}
		if c == ' ' || c == '\t' {
			if err := p.addHeaderBytes(i - start); err != ErrHdrOk {
				return start, err
			}
			p.curName = append(p.curName, data[start:i]...)
			if len(p.curName) == 0 {
				return i, ErrHdrBadChar
			}
			p.state = sHeaderNameOWS
			return i, ErrHdrOk
		}
		if !isTokenChar(c) {
			return i, ErrHdrBadChar
		}
		i++
	}
	if err := p.addHeaderBytes(i - start); err != ErrHdrOk {
		return start, err
	}
	p.curName = append(p.curName, data[start:i]...)
	return i, ErrHdrMoreBytes
}

func (p *Parser) scanHeaderNameOWS(data []byte, i int) (int, ErrorHdr) {
	for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
		i++
	}
	if i >= len(data) {
		return i, ErrHdrMoreBytes
	}
	if data[i] != ':' {
		return i, ErrHdrBadChar
	}
	p.state = sHeaderColonOWS
	return i + 1, ErrHdrOk
}

func (p *Parser) scanHeaderColonOWS(data []byte, i int) (int, ErrorHdr) {
	i = skipOWS(data, i)
	if i >= len(data) {
		return i, ErrHdrMoreBytes
	}
	p.state = sHeaderValue
	return i, ErrHdrOk
}

func (p *Parser) scanHeaderValue(data []byte, i int) (int, ErrorHdr) {
	start := i
	for i < len(data) {
		c := data[i]
		if c == '\r' || c == '\n' {
			if err := p.addHeaderBytes(i - start); err != ErrHdrOk {
				return start, err
			}
			p.curValue = append(p.curValue, data[start:i]...)
			p.finishHeaderLine()
			if c == '\r' {
				p.state = sHeaderValueCR
				return i, ErrHdrOk
			}
			p.state = sHeaderLineStart
			return i + 1, ErrHdrOk
		}
		i++
	}
	if err := p.addHeaderBytes(i - start); err != ErrHdrOk {
		return start, err
	}
	p.curValue = append(p.curValue, data[start:i]...)
	return i, ErrHdrMoreBytes
}

// finishHeaderLine trims trailing OWS from the accumulated value, fires
// the OnHeaderField/OnHeaderValue pair, and updates framing bookkeeping
// for the handful of headers the parser itself must understand.
func (p *Parser) finishHeaderLine() {
	v := trimOWS(p.curValue)
	name := p.curName
	if p.inTrailers {
		p.sink.OnTrailerField(name)
		p.sink.OnTrailerValue(v)
		return
	}
	p.sink.OnHeaderField(name)
	p.sink.OnHeaderValue(v)
	p.applyHeaderSemantics(name, v)
}

func trimOWS(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\t') {
		j--
	}
	return b[i:j]
}

func (p *Parser) applyHeaderSemantics(name, value []byte) {
	switch {
	case bytescase.CmpEq(name, []byte("content-length")):
		p.sawContentLength = true
		v, ok := parseDigits(trimOWS(value))
		if ok {
			p.contentLength = int64(v)
		}
	case bytescase.CmpEq(name, []byte("transfer-encoding")):
		if containsTokenCI(value, "chunked") {
			p.sawChunked = true
		}
	case bytescase.CmpEq(name, []byte("connection")):
		if containsTokenCI(value, "close") {
			p.sawConnectionClose = true
		}
		if containsTokenCI(value, "keep-alive") {
			p.sawConnectionKeepAlive = true
		}
		if containsTokenCI(value, "upgrade") {
			p.sawConnectionUpgrade = true
		}
	case bytescase.CmpEq(name, []byte("upgrade")):
		p.sawUpgrade = true
	}
}

// containsTokenCI reports whether value (a comma separated header
// value, e.g. a Connection or Transfer-Encoding list) contains tok,
// compared case-insensitively with surrounding whitespace trimmed.
func containsTokenCI(value []byte, tok string) bool {
	for _, part := range splitComma(value) {
		if bytescase.CmpEq(trimOWS(part), []byte(tok)) {
			return true
		}
	}
	return false
}

func splitComma(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i <= len(b); i++ {
		if i == len(b) || b[i] == ',' {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	return out
}

func (p *Parser) readIdentityBody(data []byte, i int) (int, ErrorHdr) {
	avail := int64(len(data) - i)
	if avail >= p.bodyRemaining {
		end := i + int(p.bodyRemaining)
		if p.bodyRemaining > 0 {
			p.sink.OnBody(data[i:end])
		}
		p.bodyRemaining = 0
		if p.noBodyHint == 1 {
			// shouldn't happen (handled earlier) but stay safe
		}
		p.beginTrailersOrDone()
		return end, ErrHdrOk
	}
	p.sink.OnBody(data[i:])
	p.bodyRemaining -= avail
	return len(data), ErrHdrMoreBytes
}

func (p *Parser) beginTrailersOrDone() {
	p.sink.OnMessageComplete()
	p.state = sMessageDone
}

func (p *Parser) scanChunkSize(data []byte, i int) (int, ErrorHdr) {
	for i < len(data) {
		c := data[i]
		switch {
		case p.state == sChunkExt:
			// skip chunk extensions up to CR/LF
			if c == '\r' || c == '\n' {
				p.state = sChunkSizeCR
				return p.expectCR(data, i, sChunkSizeLF)
			}
			i++
			continue
		case c == ';':
			p.state = sChunkExt
			p.chunkHaveExt = true
			i++
			continue
		case c == '\r' || c == '\n':
			p.state = sChunkSizeCR
			return p.expectCR(data, i, sChunkSizeLF)
		default:
			v, ok := hexDigitVal(c)
			if !ok {
				return i, ErrHdrChunkBadSize
			}
			p.chunkSize = p.chunkSize*16 + int64(v)
			if p.chunkSize > maxAccumVal {
				return i, ErrHdrNumTooBig
			}
			p.state = sChunkSize
			i++
		}
	}
	return i, ErrHdrMoreBytes
}

func (p *Parser) afterChunkSizeLF(data []byte, i int) (int, ErrorHdr) {
	if p.chunkSize == 0 {
		p.inTrailers = true
		p.state = sHeaderLineStart
		return i, ErrHdrOk
	}
	p.bodyRemaining = p.chunkSize
	p.state = sChunkData
	return i, ErrHdrOk
}

func (p *Parser) readChunkData(data []byte, i int) (int, ErrorHdr) {
	avail := int64(len(data) - i)
	if avail >= p.bodyRemaining {
		end := i + int(p.bodyRemaining)
		if p.bodyRemaining > 0 {
			p.sink.OnBody(data[i:end])
		}
		p.bodyRemaining = 0
		p.chunkSize = 0
		p.chunkHaveExt = false
		p.state = sChunkDataCR
		return end, ErrHdrOk
	}
	p.sink.OnBody(data[i:])
	p.bodyRemaining -= avail
	return len(data), ErrHdrMoreBytes
}

// scanByte finds the next occurrence of sep at or after i, returning
// its offset and true, or (len(data), false) if not found.
func scanByte(data []byte, i int, sep byte) (int, bool) {
	for j := i; j < len(data); j++ {
		if data[j] == sep {
			return j, true
		}
	}
	return len(data), false
}

// scanUntilCRLFStart finds the next CR or LF at or after i.
func scanUntilCRLFStart(data []byte, i int) (int, bool) {
	for j := i; j < len(data); j++ {
		if data[j] == '\r' || data[j] == '\n' {
			return j, true
		}
	}
	return len(data), false
}
