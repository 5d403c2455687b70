// Command httpwiredemo is a minimal echo server built on top of the
// httpwire engine: it demonstrates the one external adapter the
// library itself does not provide, a net.Conn-backed Transport, with
// one goroutine per accepted connection managed by an errgroup.Group
// so the listener can wait for in-flight connections to finish on
// shutdown.
package main

import (
	"context"
	"flag"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vellum-dev/httpwire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	flag.Parse()

	log := logrus.StandardLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, *addr, log); err != nil {
		log.WithError(err).Fatal("httpwiredemo: exiting")
	}
}

func serve(ctx context.Context, addr string, log *logrus.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.WithField("addr", addr).Info("httpwiredemo: listening")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-gctx.Done():
				return group.Wait()
			default:
				return err
			}
		}
		group.Go(func() error {
			return serveConn(conn, log)
		})
	}
}

func serveConn(raw net.Conn, log *logrus.Logger) error {
	defer raw.Close()
	t := newNetConnTransport(raw, log)
	entry := log.WithField("conn", t.id.String())
	t.log = entry

	handler := httpwire.HandlerFunc(echoHandler)
	conn := httpwire.NewConnection(t, handler, httpwire.WithLogger(log))
	entry.Info("httpwiredemo: connection accepted")
	err := t.readLoop(conn)
	entry.WithError(err).Info("httpwiredemo: connection closed")
	return nil
}

// echoHandler answers every request with a 200 OK body reporting the
// method, path and body length it received, demonstrating both the
// buffered (Content-Length known up front) and the ResponseWriter body
// API.
func echoHandler(w *httpwire.ResponseWriter, req *httpwire.Message) {
	body, _ := req.Body.ReadAll()
	resp := []byte("method=" + req.MethodRaw + " path=" + req.Path + " bytes=" + strconv.Itoa(len(body)))
	var hdrs httpwire.HeaderList
	hdrs.Add("Content-Type", "text/plain; charset=utf-8")
	if err := w.StartResponse(200, "OK", hdrs, len(resp)); err != nil {
		return
	}
	_, _ = w.Write(resp)
	_ = w.End()
}

