package httpwire

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// connState is the per-connection state machine:
// Idle -> ReadingHeaders -> ReadingBody -> BetweenMessages, looping,
// or Closed from any state.
type connState uint8

const (
	stateIdle connState = iota
	stateReadingHeaders
	stateReadingBody
	stateBetweenMessages
	stateClosed
)

// pendingResponse is one entry in the client-side pipeline queue: a
// request that has been sent and is awaiting its response, matched in
// strict FIFO order against the outstanding-request log.
type pendingResponse struct {
	method HTTPMethod
	ch     chan clientRespResult
}

type clientRespResult struct {
	msg *Message
	err error
}

// Connection is the per-connection protocol controller: it drives a
// Parser from bytes the Transport delivers, drives a FramingWriter to
// produce bytes the Transport sends, and implements pipelining,
// keep-alive and hop-by-hop enforcement. One Connection serves either
// the client or the server side of a single TCP (or TCP-like)
// connection; create a pair for a loopback test.
//
// All exported methods are safe to call from the Transport's read
// goroutine and the application's goroutine concurrently; the
// server-side Handler is invoked from a dedicated per-connection
// goroutine so handler code can block without stalling parsing of
// pipelined requests behind it.
type Connection struct {
	mu sync.Mutex

	cfg       *Config
	transport Transport
	parser    *Parser
	writer    *FramingWriter
	logger    *logrus.Logger

	isServer bool
	handler  Handler

	state   connState
	cur     *Message
	curBody *BodyStream

	pendingHeaderName string

	// server side
	serverQueue       chan *Message
	curRW             *ResponseWriter
	closeAfterCurrent bool

	// client side
	pending          []*pendingResponse
	lastResponseBody *BodyStream

	lastErr error
	closed  bool
}

// NewConnection creates a Connection. Pass a non-nil handler to run the
// server side; pass nil to run the client side.
func NewConnection(transport Transport, handler Handler, opts ...Option) *Connection {
	cfg := NewConfig(opts...)
	isServer := handler != nil
	c := &Connection{
		cfg:       cfg,
		transport: transport,
		isServer:  isServer,
		handler:   handler,
		logger:    cfg.Logger,
	}
	pt := ParseResponse
	if isServer {
		pt = ParseRequest
	}
	c.parser = NewParser(pt, c, cfg.MaxHeaderSize)
	c.writer = NewFramingWriter()
	if isServer {
		c.serverQueue = make(chan *Message, cfg.PipelineDepth)
		go c.serveLoop()
	}
	return c
}

// DataReceived feeds bytes read from the transport to the parser: the
// transport delivers bytes, and the connection drives the parser and
// dispatches the resulting events.
func (c *Connection) DataReceived(data []byte) error {
	c.mu.Lock()
	if c.lastErr != nil {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	_, code := c.parser.Execute(data)
	if code != ErrHdrOk && code != ErrHdrMoreBytes {
		herr := newParseError(code)
		c.fail(herr)
		return herr
	}
	return nil
}

// ConnectionLost signals that the transport closed, with err nil for a
// clean close. A message in progress with no declared body length
// completes normally on EOF; anything else mid-message becomes a
// truncation error.
func (c *Connection) ConnectionLost(err error) {
	_, code := c.parser.Execute(nil)
	c.mu.Lock()
	closing := !c.closed
	c.closed = true
	var final error
	if code != ErrHdrOk {
		final = newParseError(code)
	} else if err != nil {
		final = wrapTransportError(err)
	} else {
		final = newNotConnectedError()
	}
	if c.lastErr == nil {
		c.lastErr = final
	}
	body := c.curBody
	pending := append([]*pendingResponse(nil), c.pending...)
	c.pending = nil
	c.state = stateClosed
	c.mu.Unlock()

	if !closing {
		return
	}
	if body != nil {
		body.FeedError(final)
	}
	for _, pr := range pending {
		pr.ch <- clientRespResult{err: final}
	}
	if c.serverQueue != nil {
		close(c.serverQueue)
	}
}

func (c *Connection) fail(err *HttpError) {
	c.mu.Lock()
	if c.lastErr == nil {
		c.lastErr = err
	}
	body := c.curBody
	pending := append([]*pendingResponse(nil), c.pending...)
	c.pending = nil
	c.state = stateClosed
	closing := !c.closed
	c.closed = true
	c.mu.Unlock()

	c.logger.WithError(err).Debug("httpwire: connection aborted")
	if !closing {
		return
	}
	if body != nil {
		body.FeedError(err)
	}
	for _, pr := range pending {
		pr.ch <- clientRespResult{err: err}
	}
	if c.serverQueue != nil {
		close(c.serverQueue)
	}
	c.transport.Close()
}

// ---- EventSink implementation -------------------------------------

func (c *Connection) OnMessageBegin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind := MsgResponse
	if c.isServer {
		kind = MsgRequest
	}
	c.cur = &Message{Kind: kind}
	c.state = stateReadingHeaders
}

func (c *Connection) OnURL(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.URL = string(p)
	c.cur.Path, c.cur.Query = splitPathQuery(c.cur.URL)
}

func (c *Connection) OnHeaderField(name []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeaderName = string(name)
}

func (c *Connection) OnHeaderValue(value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.Headers.Add(c.pendingHeaderName, string(value))
}

func (c *Connection) OnTrailerField(name []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingHeaderName = string(name)
}

func (c *Connection) OnTrailerValue(value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.Trailers.Add(c.pendingHeaderName, string(value))
}

// OnHeadersComplete classifies the message and decides whether a body
// follows (0), or whether this is a response to a HEAD request and so
// has no body regardless of framing headers (1).
func (c *Connection) OnHeadersComplete(hi *headInfo) int {
	c.mu.Lock()
	m := c.cur
	m.Major, m.Minor = hi.Major, hi.Minor
	m.ShouldKeepAlive = hi.ShouldKeepAlive
	m.IsUpgrade = hi.IsUpgrade

	noBody := 0
	if c.isServer {
		m.Method = hi.Method
		m.MethodRaw = hi.MethodRaw
	} else {
		m.StatusCode = hi.StatusCode
		m.Reason = hi.Reason
		if len(c.pending) > 0 && c.pending[0].method == MHead {
			noBody = 1
		}
	}
	c.curBody = NewBodyStream(c.transport)
	m.Body = c.curBody
	c.state = stateReadingBody
	c.mu.Unlock()

	if c.isServer {
		c.serverQueue <- m
	} else {
		c.mu.Lock()
		if len(c.pending) > 0 {
			pr := c.pending[0]
			c.mu.Unlock()
			pr.ch <- clientRespResult{msg: m}
		} else {
			c.mu.Unlock()
			c.logger.Warn("httpwire: response received with no outstanding request")
		}
	}
	return noBody
}

func (c *Connection) OnBody(p []byte) {
	c.mu.Lock()
	body := c.curBody
	c.mu.Unlock()
	if len(p) > 0 {
		body.Feed(p)
	}
}

func (c *Connection) OnMessageComplete() {
	c.mu.Lock()
	body := c.curBody
	if !c.isServer && len(c.pending) > 0 {
		c.pending = c.pending[1:]
	}
	c.curBody = nil
	c.state = stateBetweenMessages
	c.mu.Unlock()
	if body != nil {
		body.FeedEOF()
	}
}

// ---- server-side dispatch ------------------------------------------

func (c *Connection) serveLoop() {
	for req := range c.serverQueue {
		w := &ResponseWriter{conn: c, req: req}
		c.mu.Lock()
		c.curRW = w
		c.mu.Unlock()
		c.invokeHandler(w, req)
	}
}

func (c *Connection) invokeHandler(w *ResponseWriter, req *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("panic", r).Error("httpwire: handler panicked")
			if !w.started {
				_ = w.StartResponse(500, "Internal Server Error", nil, 0)
				_ = w.End()
			}
			c.transport.Close()
		}
	}()
	c.handler.ServeHTTP(w, req)
	if !w.started {
		c.fail(newHandlerError("handler returned without calling StartResponse for %s %s", req.MethodRaw, req.URL))
		return
	}
	if !w.ended {
		_ = w.End()
	}
}

func (c *Connection) startResponse(w *ResponseWriter, code int, reason string, extra HeaderList, length int) error {
	minor := w.req.Minor
	keepAlive := w.req.ShouldKeepAlive

	noBody := code < 200 || code == 204 || code == 304
	framing := ChooseBodyFraming(minor, noBody, length >= 0)
	w.framing = framing
	if framing == FrameCloseDelimited {
		keepAlive = false
	}

	out := c.writer.WriteStatusLine(1, minor, code, reason)
	out = append(out, c.writer.WriteHeader("Server", c.cfg.Identifier)...)
	if !extra.Has(HdrDate) {
		out = append(out, c.writer.WriteHeader("Date", ServerDateHeader())...)
	}
	for _, h := range extra {
		out = append(out, c.writer.WriteHeader(h.Name, h.Value)...)
	}
	if name, value := FramingHeader(framing, length); name != "" {
		out = append(out, c.writer.WriteHeader(name, value)...)
	}
	if cv := ConnectionHeaderValue(minor, keepAlive); cv != "" {
		out = append(out, c.writer.WriteHeader("Connection", cv)...)
	}
	out = append(out, c.writer.WriteHeaderBlockEnd()...)
	_, err := c.transport.Write(out)

	c.mu.Lock()
	c.setCloseAfterCurrentLocked(!keepAlive)
	c.mu.Unlock()
	return err
}

func (c *Connection) writeResponseBody(w *ResponseWriter, p []byte) (int, error) {
	switch w.framing {
	case FrameChunked:
		_, err := c.transport.Write(CreateChunk(p))
		return len(p), err
	default:
		return c.transport.Write(p)
	}
}

func (c *Connection) endResponse(w *ResponseWriter, trailers HeaderList) error {
	if w.framing == FrameChunked {
		_, err := c.transport.Write(CreateChunkedBodyEnd(trailers))
		if err != nil {
			return err
		}
	}
	c.mu.Lock()
	shouldClose := c.closeAfterCurrent
	c.mu.Unlock()
	if shouldClose {
		return c.transport.Close()
	}
	return nil
}

func (c *Connection) setCloseAfterCurrentLocked(close bool) {
	c.closeAfterCurrent = close
}

// ---- client-side request path ---------------------------------------

// Request sends a request line and headers and, when body is non-nil,
// writes and ends the body in one call; pass a nil body to get back a
// ClientRequest for manual streaming instead.
func (c *Connection) Request(method HTTPMethod, methodRaw, url string, headers HeaderList, body []byte) (*ClientRequest, error) {
	for _, h := range headers {
		if IsHopByHop(h.Name) {
			return nil, newUsageError("caller set hop-by-hop header %q", h.Name)
		}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, newNotConnectedError()
	}
	minor := c.cfg.Version
	length := -1
	if body != nil {
		length = len(body)
	}
	framing := ChooseBodyFraming(minor, false, body != nil)

	out := c.writer.WriteRequestLine(1, minor, methodRaw, url)
	if !headers.Has(HdrHost) {
		out = append(out, c.writer.WriteHeader("Host", hostFromURL(url, c.cfg.ServerName))...)
	}
	if !headers.Has(HdrUserAgent) {
		out = append(out, c.writer.WriteHeader("User-Agent", c.cfg.Identifier)...)
	}
	for _, h := range headers {
		out = append(out, c.writer.WriteHeader(h.Name, h.Value)...)
	}
	if name, value := FramingHeader(framing, length); name != "" {
		out = append(out, c.writer.WriteHeader(name, value)...)
	}
	if minor == 0 {
		out = append(out, c.writer.WriteHeader("Connection", "keep-alive")...)
	}
	if framing == FrameChunked {
		out = append(out, c.writer.WriteHeader("TE", "trailers")...)
	}
	out = append(out, c.writer.WriteHeaderBlockEnd()...)

	c.pending = append(c.pending, &pendingResponse{method: method, ch: make(chan clientRespResult, 1)})
	lastPending := c.pending[len(c.pending)-1]
	c.mu.Unlock()

	if _, err := c.transport.Write(out); err != nil {
		return nil, wrapTransportError(err)
	}

	req := &ClientRequest{conn: c, framing: framing}
	req.pendingCh = lastPending.ch
	if body != nil {
		if framing == FrameChunked {
			if _, err := c.transport.Write(CreateChunk(body)); err != nil {
				return nil, wrapTransportError(err)
			}
			if _, err := c.transport.Write(CreateChunkedBodyEnd(nil)); err != nil {
				return nil, wrapTransportError(err)
			}
		} else {
			if _, err := c.transport.Write(body); err != nil {
				return nil, wrapTransportError(err)
			}
		}
		req.ended = true
	}
	return req, nil
}

// RequestStream sends a request line and headers, then streams r to
// completion as the body, framed as chunked transfer encoding. It
// requires an HTTP/1.1 peer: chunked framing has no HTTP/1.0
// equivalent, so a client configured for 1.0 fails the call instead of
// silently falling back to a close-delimited body the server has no
// way to interpret as anything but a truncated connection.
func (c *Connection) RequestStream(method HTTPMethod, methodRaw, url string, headers HeaderList, r io.Reader) (*ClientRequest, error) {
	if c.cfg.Version < 1 {
		return nil, newUsageError("RequestStream requires HTTP/1.1, connection is configured for HTTP/1.%d", c.cfg.Version)
	}
	req, err := c.Request(method, methodRaw, url, headers, nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := req.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, wrapTransportError(rerr)
		}
	}
	if err := req.EndRequest(nil); err != nil {
		return nil, err
	}
	return req, nil
}

func hostFromURL(url, serverName string) string {
	// Request-URIs this engine accepts are origin-form ("/path..."); a
	// caller using absolute-form is responsible for its own Host value
	// via an explicit header. Origin-form carries no host, so fall back
	// to the configured server name rather than fail the request
	// outright.
	if len(url) > 0 && url[0] == '/' {
		return serverName
	}
	return url
}

func (c *Connection) writeRequestBody(r *ClientRequest, p []byte) (int, error) {
	if r.framing == FrameChunked {
		_, err := c.transport.Write(CreateChunk(p))
		return len(p), err
	}
	return c.transport.Write(p)
}

func (c *Connection) endRequest(r *ClientRequest, trailers HeaderList) error {
	if r.framing == FrameChunked {
		_, err := c.transport.Write(CreateChunkedBodyEnd(trailers))
		return err
	}
	return nil
}

func (c *Connection) getResponse(r *ClientRequest, timeout time.Duration) (*Message, error) {
	if r.pendingCh == nil {
		return nil, newUsageError("GetResponse called on a request with no pending entry")
	}
	c.mu.Lock()
	prev := c.lastResponseBody
	c.mu.Unlock()
	if prev != nil && !prev.Done() {
		return nil, newUsageError("body unread before next GetResponse")
	}

	var res clientRespResult
	if timeout <= 0 {
		res = <-r.pendingCh
	} else {
		select {
		case res = <-r.pendingCh:
		case <-time.After(timeout):
			return nil, newTimeoutError()
		}
	}
	if res.err != nil {
		return nil, res.err
	}
	c.mu.Lock()
	c.lastResponseBody = res.msg.Body
	c.mu.Unlock()
	return res.msg, nil
}
