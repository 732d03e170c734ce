package transport

import (
	"net"
	"time"
)

// defaults mirror §3's HttpConfig field defaults for the buffers this
// package owns; callers normally pass explicit sizes sourced from
// config.HttpConfig instead.
const (
	DefaultHeaderBufferSize    = 8192
	DefaultAccumulatorSize     = 8192
	DefaultRecvTimeout         = 30 * time.Second
	DefaultSendTimeout         = 30 * time.Second
)

// Conn is a per-connection duplex stream: a sliding read window sized
// for header parsing, and a write-side accumulator for the response.
// It is owned exclusively by the worker goroutine that accepted it
// until keep-alive ends or an Upgrade hands the raw net.Conn to another
// protocol handler.
type Conn struct {
	raw     net.Conn
	win     *Window
	acc     *Accumulator
	opts    Options
	upgraded bool
}

func newConn(raw net.Conn, opts Options) *Conn {
	headerSize := DefaultHeaderBufferSize
	accSize := DefaultAccumulatorSize
	return &Conn{
		raw:  raw,
		win:  newWindow(raw, headerSize, opts.RecvTimeout),
		acc:  newAccumulator(raw, accSize, opts.SendTimeout),
		opts: opts,
	}
}

// NewConnWithBuffers builds a Conn with explicit buffer sizes, used
// when the caller has a config.HttpConfig to size HeaderBufferSize and
// ChunkedResponseAccumulatorSize from.
func NewConnWithBuffers(raw net.Conn, opts Options, headerBufferSize, accumulatorSize int) *Conn {
	return &Conn{
		raw:  raw,
		win:  newWindow(raw, headerBufferSize, opts.RecvTimeout),
		acc:  newAccumulator(raw, accumulatorSize, opts.SendTimeout),
		opts: opts,
	}
}

// Window exposes the sliding read buffer to the HTTP state machine.
func (c *Conn) Window() *Window { return c.win }

// Accumulator exposes the write-side buffer to the HTTP state machine.
func (c *Conn) Accumulator() *Accumulator { return c.acc }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// LocalAddr returns the local (listener) address this connection was
// accepted on.
func (c *Conn) LocalAddr() net.Addr { return c.raw.LocalAddr() }

// SetDeadline applies an absolute deadline directly to the raw stream,
// used by the keep-alive idle timer.
func (c *Conn) SetDeadline(t time.Time) error { return c.raw.SetDeadline(t) }

// Close closes the underlying connection. A no-op after Upgrade, since
// ownership has already moved to the alternate protocol handler.
func (c *Conn) Close() error {
	if c.upgraded {
		return nil
	}
	return c.raw.Close()
}

// Upgrade yields ownership of the raw stream to an alternate protocol
// handler and returns a non-disposing wrapper: closing the returned
// net.Conn does not close the transport, matching §4.4's "non-disposing
// wrapper" requirement. Any bytes already buffered in the read window
// are replayed first. Only one upgrade per connection is permitted.
func (c *Conn) Upgrade() (net.Conn, error) {
	if c.upgraded {
		return nil, errAlreadyUpgraded
	}
	c.upgraded = true
	pending := append([]byte(nil), c.win.Bytes()...)
	c.win.Advance(len(pending))
	return &upgradedConn{Conn: c.raw, pending: pending}, nil
}

// upgradedConn replays any bytes buffered before the upgrade, then
// reads through to the raw connection; Close is a no-op so the
// transport's lifetime remains with the original Conn.
type upgradedConn struct {
	net.Conn
	pending []byte
}

func (u *upgradedConn) Read(p []byte) (int, error) {
	if len(u.pending) > 0 {
		n := copy(p, u.pending)
		u.pending = u.pending[n:]
		return n, nil
	}
	return u.Conn.Read(p)
}

func (u *upgradedConn) Close() error { return nil }

var errAlreadyUpgraded = &upgradeError{"connection already upgraded"}

type upgradeError struct{ msg string }

func (e *upgradeError) Error() string { return e.msg }
