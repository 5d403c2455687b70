package httpwire

import "testing"

func TestCreateChunk(t *testing.T) {
	got := string(CreateChunk([]byte("hello")))
	want := "5\r\nhello\r\n"
	if got != want {
		t.Errorf("CreateChunk = %q, want %q", got, want)
	}
}

func TestCreateChunkEmptyBody(t *testing.T) {
	got := string(CreateChunk(nil))
	want := "0\r\n\r\n"
	if got != want {
		t.Errorf("CreateChunk(nil) = %q, want %q", got, want)
	}
}

func TestCreateChunkUppercaseHexNoLeadingZeros(t *testing.T) {
	got := string(CreateChunk(make([]byte, 255)))
	if got[:2] != "ff" && got[:2] != "FF" {
		t.Fatalf("chunk size prefix = %q", got[:4])
	}
	// must be uppercase per the writer's framing convention
	if got[0] < 'A' || got[0] > 'F' {
		t.Errorf("chunk size hex digit %q is not uppercase", got[0])
	}
}

func TestCreateChunkedBodyEndNoTrailers(t *testing.T) {
	got := string(CreateChunkedBodyEnd(nil))
	want := "0\r\n\r\n"
	if got != want {
		t.Errorf("CreateChunkedBodyEnd(nil) = %q, want %q", got, want)
	}
}

func TestCreateChunkedBodyEndWithTrailers(t *testing.T) {
	var trailers HeaderList
	trailers.Add("X-Checksum", "abc123")
	got := string(CreateChunkedBodyEnd(trailers))
	want := "0\r\nX-Checksum: abc123\r\n\r\n"
	if got != want {
		t.Errorf("CreateChunkedBodyEnd = %q, want %q", got, want)
	}
}

// TestChunkRoundTrip feeds CreateChunk's own output back through the
// parser and checks the body comes out unchanged, tying the writer's
// chunk codec to the parser's chunk-reading states.
func TestChunkRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	p := NewParser(ParseRequest, sink, 64*1024)
	var raw []byte
	raw = append(raw, []byte("POST /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")...)
	raw = append(raw, CreateChunk([]byte("abc"))...)
	raw = append(raw, CreateChunk([]byte("defgh"))...)
	raw = append(raw, CreateChunkedBodyEnd(nil)...)

	mustParseAll(t, p, raw)
	if string(sink.body) != "abcdefgh" {
		t.Errorf("round-tripped body = %q, want abcdefgh", sink.body)
	}
}
