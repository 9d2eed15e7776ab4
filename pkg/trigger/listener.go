// Package trigger listens for the bin controller's UDP start command
// and runs the pipeline once per recognized trigger. The receive loop
// is sequential on purpose: a trigger arriving mid-run sits in the
// socket buffer until the current run completes, so the camera and
// model are never contended.
package trigger

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/teslashibe/go-sorter/internal/log"
)

// Runner executes one pipeline run. Its error is logged, never fatal
// to the listener.
type Runner func(ctx context.Context) error

// Listener owns the trigger socket.
type Listener struct {
	port    int
	keyword string
	run     Runner
	conn    *net.UDPConn
}

// New creates a Listener. The keyword comparison is case-insensitive
// and ignores surrounding whitespace.
func New(port int, keyword string, run Runner) *Listener {
	return &Listener{
		port:    port,
		keyword: strings.ToLower(strings.TrimSpace(keyword)),
		run:     run,
	}
}

// Bind opens the UDP socket. Call before Serve.
func (l *Listener) Bind() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: l.port})
	if err != nil {
		return fmt.Errorf("trigger: bind port %d: %w", l.port, err)
	}
	l.conn = conn
	return nil
}

// Addr returns the bound address. Only valid after Bind.
func (l *Listener) Addr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Serve blocks receiving datagrams until ctx is cancelled. Unknown
// payloads are ignored; a failed run is logged and the loop continues.
func (l *Listener) Serve(ctx context.Context) error {
	defer l.conn.Close()

	// Unblock the read when the context ends.
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	log.Info("listening for trigger", "addr", l.Addr().String(), "keyword", l.keyword)

	buf := make([]byte, 1024)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("trigger listener stopped")
				return nil
			}
			return fmt.Errorf("trigger: receive: %w", err)
		}

		msg := strings.ToLower(strings.TrimSpace(string(buf[:n])))
		if msg != l.keyword {
			log.Debug("ignoring unknown command", "payload", msg, "from", addr.String())
			continue
		}

		log.Info("trigger received", "from", addr.String())
		if err := l.run(ctx); err != nil {
			log.Error("pipeline run failed", "error", err)
		}
	}
}

// Listen binds and serves in one call.
func (l *Listener) Listen(ctx context.Context) error {
	if err := l.Bind(); err != nil {
		return err
	}
	return l.Serve(ctx)
}
