// Package transport implements the TCP accept engine (C2) and the
// per-connection buffered duplex stream (C3) the HTTP state machine
// parses against.
package transport

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/corehttpd/corehttpd/internal/httperr"
)

// Options configures socket-level behavior for accepted connections.
type Options struct {
	// MaxOpenConnections caps concurrently open connections; 0 means
	// the engine answers every accept with 503 and closes immediately.
	MaxOpenConnections int64
	// NoDelay disables Nagle's algorithm on accepted sockets.
	NoDelay bool
	// KeepAlive enables OS-level TCP keepalive when > 0, with that period.
	KeepAlive time.Duration
	// RecvTimeout/SendTimeout bound individual read/write calls.
	RecvTimeout time.Duration
	SendTimeout time.Duration
}

// Listener binds one net.Listener per configured interface and runs an
// accept loop per listener, enforcing the open-connection ceiling.
type Listener struct {
	addr     string
	opts     Options
	log      *zap.Logger
	ln       net.Listener
	open     int64
	closing  atomic.Bool
}

// NewListener binds addr but does not yet start accepting.
func NewListener(addr string, opts Options, log *zap.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{addr: addr, opts: opts, log: log, ln: ln}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// OpenConnections returns the current open-connection count.
func (l *Listener) OpenConnections() int64 { return atomic.LoadInt64(&l.open) }

// Accept runs the accept loop until ctx is cancelled or the listener is
// closed, invoking handle for each admitted connection. Accept failures
// are retried with exponential backoff capped at one second; a closed
// listener ends the loop cleanly.
func (l *Listener) Accept(ctx context.Context, handle func(context.Context, *Conn)) error {
	backoff := 5 * time.Millisecond
	const maxBackoff = time.Second

	for {
		if l.closing.Load() {
			return nil
		}
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closing.Load() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			l.log.Warn("accept error, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = 5 * time.Millisecond

		if l.opts.MaxOpenConnections == 0 || atomic.LoadInt64(&l.open) >= l.opts.MaxOpenConnections {
			// ceiling reached (or processing disabled): answer 503 and close.
			writeUnavailable(conn)
			_ = conn.Close()
			continue
		}

		l.configureSocket(conn)
		atomic.AddInt64(&l.open, 1)
		c := newConn(conn, l.opts)
		go func() {
			defer func() {
				atomic.AddInt64(&l.open, -1)
				_ = c.Close()
			}()
			handle(ctx, c)
		}()
	}
}

func (l *Listener) configureSocket(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(l.opts.NoDelay)
	if l.opts.KeepAlive > 0 {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(l.opts.KeepAlive)
	} else {
		_ = tc.SetKeepAlive(false)
	}
}

func writeUnavailable(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = conn.Write([]byte("HTTP/1.1 503 Service Unavailable\r\nConnection: close\r\nContent-Length: 0\r\n\r\n"))
}

// Shutdown closes the listener socket so Accept returns; it does not
// wait for in-flight connections — callers drain those separately with
// their own keep-alive/send-timeout budget.
func (l *Listener) Shutdown() error {
	l.closing.Store(true)
	return l.ln.Close()
}

// errUnavailable is the error returned (conceptually) when the open
// connection ceiling has been hit; kept for callers that want to log
// structured kind info rather than the raw socket write above.
var errUnavailable = httperr.New(httperr.Unavailable, "open connection ceiling reached")

// ErrUnavailable exposes errUnavailable for tests/log sites.
func ErrUnavailable() *httperr.Error { return errUnavailable }
