package main

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vellum-dev/httpwire"
)

// netConnTransport is the one concrete httpwire.Transport adapter this
// module ships: a net.Conn plus a read loop that feeds
// Connection.DataReceived, and a pause flag the read loop checks
// between reads to implement backpressure.
type netConnTransport struct {
	conn   net.Conn
	id     uuid.UUID
	log    logrus.FieldLogger
	paused int32

	resumeCh chan struct{}
}

func newNetConnTransport(conn net.Conn, log logrus.FieldLogger) *netConnTransport {
	return &netConnTransport{
		conn:     conn,
		id:       uuid.New(),
		log:      log.WithField("conn", "pending"),
		resumeCh: make(chan struct{}, 1),
	}
}

func (t *netConnTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *netConnTransport) Close() error                { return t.conn.Close() }

func (t *netConnTransport) PauseReading() {
	atomic.StoreInt32(&t.paused, 1)
}

func (t *netConnTransport) ResumeReading() {
	if atomic.CompareAndSwapInt32(&t.paused, 1, 0) {
		select {
		case t.resumeCh <- struct{}{}:
		default:
		}
	}
}

func (t *netConnTransport) ExtraInfo(key string) interface{} {
	switch key {
	case "peername":
		return t.conn.RemoteAddr()
	case "sockname":
		return t.conn.LocalAddr()
	default:
		return nil
	}
}

// readLoop feeds bytes to conn until the socket closes or a fatal
// parse error aborts the connection. It is meant to run under an
// errgroup.Group so serve can wait for every accepted connection
// to drain on shutdown.
func (t *netConnTransport) readLoop(conn *httpwire.Connection) error {
	buf := make([]byte, 32*1024)
	for {
		if atomic.LoadInt32(&t.paused) == 1 {
			<-t.resumeCh
		}
		n, err := t.conn.Read(buf)
		if n > 0 {
			if derr := conn.DataReceived(buf[:n]); derr != nil {
				conn.ConnectionLost(derr)
				return derr
			}
		}
		if err != nil {
			conn.ConnectionLost(err)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
