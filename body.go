package httpwire

import (
	"bytes"
	"io"
	"sync"
)

// bodyBufHighWater is the default number of buffered-but-unread body
// bytes at which a BodyStream asks its Transport to pause reading more
// off the wire.
const bodyBufHighWater = 64 * 1024

// bodyBufLowWater is the buffered-byte level a BodyStream must drain
// back down to before it asks the Transport to resume.
const bodyBufLowWater = 16 * 1024

// BodyStream is a bounded, pause/resume aware buffer standing between
// the incremental Parser (producer, on the connection's read goroutine)
// and application code (consumer, reading at its own pace). It applies
// backpressure at the transport level instead of growing without bound.
type BodyStream struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      bytes.Buffer
	err      error // sticky terminal error, set by FeedError
	eof      bool  // Feed stream ended cleanly
	paused   bool
	transport Transport
	highWater int
	lowWater  int
}

// NewBodyStream creates a BodyStream that asks t to PauseReading/
// ResumeReading once its buffered bytes cross bodyBufHighWater and
// drain back to bodyBufLowWater. t
// may be nil, in which case backpressure signaling is skipped (useful
// in tests).
func NewBodyStream(t Transport) *BodyStream {
	b := &BodyStream{transport: t, highWater: bodyBufHighWater, lowWater: bodyBufLowWater}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Feed appends bytes produced by the parser's OnBody callback. Called
// only from the connection's read goroutine.
func (b *BodyStream) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.buf.Write(p)
	grew := b.buf.Len() >= b.highWater
	b.mu.Unlock()
	if grew && b.transport != nil {
		b.pauseIfNeeded()
	}
	b.cond.Broadcast()
}

func (b *BodyStream) pauseIfNeeded() {
	b.mu.Lock()
	already := b.paused
	b.paused = true
	b.mu.Unlock()
	if !already {
		b.transport.PauseReading()
	}
}

// FeedEOF marks the body as complete with no error: called from
// OnMessageComplete for identity/chunked bodies, or on a clean
// EOF-delimited close.
func (b *BodyStream) FeedEOF() {
	b.mu.Lock()
	b.eof = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// FeedError marks the body as having failed; subsequent Read calls
// return the error once buffered data is drained.
func (b *BodyStream) FeedError(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Read drains up to len(p) buffered bytes, blocking until at least one
// byte is available, EOF is reached, or an error was fed. It resumes a
// paused Transport once the buffer falls back under the low watermark.
func (b *BodyStream) Read(p []byte) (int, error) {
	b.mu.Lock()
	for b.buf.Len() == 0 && !b.eof && b.err == nil {
		b.cond.Wait()
	}
	n, _ := b.buf.Read(p)
	shrunk := b.paused && b.buf.Len() <= b.lowWater
	if shrunk {
		b.paused = false
	}
	err := b.terminalErrorLocked(n)
	b.mu.Unlock()
	if shrunk && b.transport != nil {
		b.transport.ResumeReading()
	}
	return n, err
}

// terminalErrorLocked returns the error Read should report alongside n
// bytes: nil while data remains buffered, the sticky FeedError error
// once the buffer is empty, or io.EOF once the buffer is empty and
// FeedEOF was called, following the stdlib io.Reader convention.
func (b *BodyStream) terminalErrorLocked(n int) error {
	if n > 0 {
		return nil
	}
	if b.err != nil {
		return b.err
	}
	if b.eof {
		return io.EOF
	}
	return nil
}

// Err returns the terminal error fed via FeedError, if any, once the
// buffer has been fully drained. EOF (no error) is reported by Done.
func (b *BodyStream) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() > 0 {
		return nil
	}
	return b.err
}

// Done reports whether the body is fully consumed: buffer drained and
// either EOF was fed or a terminal error occurred.
func (b *BodyStream) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len() == 0 && (b.eof || b.err != nil)
}

// ReadAll blocks until the body stream ends (EOF or error) and returns
// everything buffered. Intended for small bodies in tests and simple
// handlers; streaming consumers should use Read directly.
func (b *BodyStream) ReadAll() ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := b.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
