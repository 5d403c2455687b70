package httpwire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFramingWriterRequestLine(t *testing.T) {
	w := NewFramingWriter()
	require.Equal(t, "GET /index.html HTTP/1.1\r\n", string(w.WriteRequestLine(1, 1, "GET", "/index.html")))
}

func TestFramingWriterStatusLine(t *testing.T) {
	w := NewFramingWriter()
	require.Equal(t, "HTTP/1.0 404 Not Found\r\n", string(w.WriteStatusLine(1, 0, 404, "Not Found")))
}

func TestFramingWriterHeaderAndBlockEnd(t *testing.T) {
	w := NewFramingWriter()
	require.Equal(t, "Host: example.com\r\n", string(w.WriteHeader("Host", "example.com")))
	require.Equal(t, "\r\n", string(w.WriteHeaderBlockEnd()))
}

func TestChooseBodyFraming(t *testing.T) {
	require.Equal(t, FrameNone, ChooseBodyFraming(1, true, true))
	require.Equal(t, FrameContentLength, ChooseBodyFraming(1, false, true))
	require.Equal(t, FrameChunked, ChooseBodyFraming(1, false, false))
	require.Equal(t, FrameCloseDelimited, ChooseBodyFraming(0, false, false))
}

func TestFramingHeader(t *testing.T) {
	name, value := FramingHeader(FrameContentLength, 42)
	require.Equal(t, "Content-Length", name)
	require.Equal(t, "42", value)

	name, value = FramingHeader(FrameChunked, 0)
	require.Equal(t, "Transfer-Encoding", name)
	require.Equal(t, "chunked", value)

	name, value = FramingHeader(FrameCloseDelimited, 0)
	require.Empty(t, name)
	require.Empty(t, value)
}

func TestConnectionHeaderValue(t *testing.T) {
	require.Equal(t, "keep-alive", ConnectionHeaderValue(0, true))
	require.Empty(t, ConnectionHeaderValue(0, false))
	require.Equal(t, "close", ConnectionHeaderValue(1, false))
	require.Empty(t, ConnectionHeaderValue(1, true))
}

func TestServerDateHeaderUsesNowFunc(t *testing.T) {
	old := nowFunc
	defer func() { nowFunc = old }()
	nowFunc = func() time.Time { return time.Date(2022, time.January, 2, 15, 4, 5, 0, time.UTC) }
	require.Equal(t, "Sun, 02 Jan 2022 15:04:05 GMT", ServerDateHeader())
}
