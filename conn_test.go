package httpwire

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoServerHandler(w *ResponseWriter, req *Message) {
	body, _ := req.Body.ReadAll()
	resp := []byte("echo:" + string(body))
	_ = w.StartResponse(200, "OK", nil, len(resp))
	_, _ = w.Write(resp)
	_ = w.End()
}

// waitForBytes polls transport.written until it holds at least want
// bytes or a second has passed, since the server dispatches handlers on
// a background goroutine.
func waitForBytes(t *testing.T, transport *fakeTransport, want int) string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		transport.mu.Lock()
		n := len(transport.written)
		transport.mu.Unlock()
		if n >= want {
			break
		}
		time.Sleep(time.Millisecond)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return string(transport.written)
}

func TestConnectionServerSimpleRequest(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, HandlerFunc(echoServerHandler))

	req := []byte("POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	require.NoError(t, conn.DataReceived(req))

	out := waitForBytes(t, transport, 1)
	require.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	require.Contains(t, out, "Content-Length: 10\r\n")
	require.Contains(t, out, "echo:hello")
}

func TestConnectionServerHTTP10ClosesAfterResponse(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, HandlerFunc(echoServerHandler))

	req := []byte("GET / HTTP/1.0\r\n\r\n")
	require.NoError(t, conn.DataReceived(req))

	waitForBytes(t, transport, 1)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		transport.mu.Lock()
		closed := transport.closed
		transport.mu.Unlock()
		if closed {
			break
		}
		time.Sleep(time.Millisecond)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.True(t, transport.closed, "HTTP/1.0 with no keep-alive should close after the response")
}

func TestConnectionServerKeepAliveHTTP11StaysOpen(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, HandlerFunc(echoServerHandler))

	req := []byte("GET / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
	require.NoError(t, conn.DataReceived(req))
	waitForBytes(t, transport, 1)

	time.Sleep(20 * time.Millisecond)
	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.False(t, transport.closed, "HTTP/1.1 keep-alive should not close after one response")
}

func TestConnectionServerPipelinedRequestsAnsweredInOrder(t *testing.T) {
	transport := newFakeTransport()
	var mu sync.Mutex
	var seen []string
	handler := HandlerFunc(func(w *ResponseWriter, req *Message) {
		mu.Lock()
		seen = append(seen, req.Path)
		mu.Unlock()
		_ = w.StartResponse(200, "OK", nil, 0)
		_ = w.End()
	})
	conn := NewConnection(transport, handler)

	req := []byte("GET /a HTTP/1.1\r\nContent-Length: 0\r\n\r\nGET /b HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
	require.NoError(t, conn.DataReceived(req))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/a", "/b"}, seen)
}

func TestConnectionServerRejectsHopByHopFromHandler(t *testing.T) {
	transport := newFakeTransport()
	errCh := make(chan error, 1)
	handler := HandlerFunc(func(w *ResponseWriter, req *Message) {
		var hdrs HeaderList
		hdrs.Add("Connection", "close")
		errCh <- w.StartResponse(200, "OK", hdrs, 0)
	})
	conn := NewConnection(transport, handler)
	require.NoError(t, conn.DataReceived([]byte("GET / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")))

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestConnectionClientRequestResponseRoundTrip(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MGet, "GET", "/status", nil, nil)
	require.NoError(t, err)

	transport.mu.Lock()
	sent := string(transport.written)
	transport.mu.Unlock()
	require.Contains(t, sent, "GET /status HTTP/1.1\r\n")
	require.Contains(t, sent, "Host: localhost\r\n")

	resp := []byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")
	require.NoError(t, conn.DataReceived(resp))

	msg, err := req.GetResponse(time.Second)
	require.NoError(t, err)
	body, _ := msg.Body.ReadAll()
	require.Equal(t, "ok", string(body))
}

func TestConnectionClientHeadSuppressesBody(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MHead, "HEAD", "/big", nil, nil)
	require.NoError(t, err)

	resp := []byte("HTTP/1.1 200 OK\r\nContent-Length: 99999\r\n\r\n")
	require.NoError(t, conn.DataReceived(resp))

	msg, err := req.GetResponse(time.Second)
	require.NoError(t, err)
	require.True(t, msg.Body.Done(), "HEAD response body should be immediately complete")
}

func TestConnectionClientGetResponseTimesOut(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MGet, "GET", "/slow", nil, nil)
	require.NoError(t, err)

	_, err = req.GetResponse(10 * time.Millisecond)
	require.Error(t, err)
	var herr *HttpError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, KindTimeout, herr.Kind)
}

func TestConnectionClientOversizeHeaderAborts(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil, WithMaxHeaderSize(32))

	req, err := conn.Request(MGet, "GET", "/x", nil, nil)
	require.NoError(t, err)

	resp := []byte("HTTP/1.1 200 OK\r\nX-Long: " + strings.Repeat("x", 64) + "\r\n\r\n")
	err = conn.DataReceived(resp)
	require.Error(t, err)

	_, err = req.GetResponse(time.Second)
	require.Error(t, err)

	require.Error(t, conn.DataReceived([]byte("irrelevant")), "a failed connection rejects further data")
}

func TestConnectionClientConnectionLostFailsPending(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MGet, "GET", "/x", nil, nil)
	require.NoError(t, err)

	conn.ConnectionLost(nil)

	_, err = req.GetResponse(time.Second)
	require.Error(t, err)
}

func TestConnectionClientChunkedUploadFramesEachWriteAsOneChunk(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MPost, "POST", "/u", nil, nil)
	require.NoError(t, err)
	_, err = req.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = req.Write([]byte("cde"))
	require.NoError(t, err)
	require.NoError(t, req.EndRequest(nil))

	transport.mu.Lock()
	sent := string(transport.written)
	transport.mu.Unlock()
	require.Contains(t, sent, "2\r\nab\r\n3\r\ncde\r\n0\r\n\r\n")
}

func TestConnectionClientChunkedResponseTrailerVisibleOnlyAfterBodyDrained(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MGet, "GET", "/trace", nil, nil)
	require.NoError(t, err)

	resp := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\nX-Trace: 1\r\n\r\n")
	require.NoError(t, conn.DataReceived(resp))

	msg, err := req.GetResponse(time.Second)
	require.NoError(t, err)
	require.Empty(t, msg.GetTrailer("x-trace", ""), "trailer must not be visible before the body is drained")

	body, err := msg.Body.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
	require.Equal(t, "1", msg.GetTrailer("x-trace", ""))
}

func TestConnectionClientPipelinesWithoutReadingInBetween(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	var reqs []*ClientRequest
	for _, path := range []string{"/a", "/b", "/c"} {
		r, err := conn.Request(MGet, "GET", path, nil, nil)
		require.NoError(t, err)
		reqs = append(reqs, r)
	}

	resp := []byte(
		"HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nA" +
			"HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nB" +
			"HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nC")
	require.NoError(t, conn.DataReceived(resp))

	for i, want := range []string{"A", "B", "C"} {
		msg, err := reqs[i].GetResponse(time.Second)
		require.NoError(t, err)
		body, err := msg.Body.ReadAll()
		require.NoError(t, err)
		require.Equal(t, want, string(body), "responses must come back in request order")
	}
}

func TestConnectionClientChunkedRequestBody(t *testing.T) {
	transport := newFakeTransport()
	conn := NewConnection(transport, nil)

	req, err := conn.Request(MPost, "POST", "/upload", nil, nil)
	require.NoError(t, err)
	_, err = req.Write([]byte("chunk-one"))
	require.NoError(t, err)
	require.NoError(t, req.EndRequest(nil))

	transport.mu.Lock()
	sent := string(transport.written)
	transport.mu.Unlock()
	require.Contains(t, sent, "Transfer-Encoding: chunked\r\n")
	require.Contains(t, sent, strconv.FormatInt(int64(len("chunk-one")), 16)+"\r\nchunk-one\r\n")
	require.Contains(t, sent, "0\r\n\r\n")
}
