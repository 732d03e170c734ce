package transport

import (
	"net"
	"time"
)

// Accumulator is the write-side buffer the response headers and
// chunked-response bytes are batched into before a single flush to the
// connection, mirroring the sliding window's read-side discipline.
type Accumulator struct {
	conn net.Conn
	buf  []byte
	wt   time.Duration
}

func newAccumulator(conn net.Conn, size int, sendTimeout time.Duration) *Accumulator {
	return &Accumulator{conn: conn, buf: make([]byte, 0, size), wt: sendTimeout}
}

// AppendByte appends a single byte to the accumulator.
func (a *Accumulator) AppendByte(b byte) {
	a.buf = append(a.buf, b)
}

// AppendString appends s using the encoding the caller has already
// transcoded into bytes (the HTTP encoding is applied by the caller;
// the accumulator itself is encoding-agnostic).
func (a *Accumulator) AppendString(s string) {
	a.buf = append(a.buf, s...)
}

// AppendBytes appends raw bytes (e.g. a chunk body) to the accumulator.
func (a *Accumulator) AppendBytes(b []byte) {
	a.buf = append(a.buf, b...)
}

// WriteTerminator appends the CRLFCRLF (or CRLF, for chunk framing)
// terminator bytes.
func (a *Accumulator) WriteTerminator(term string) {
	a.buf = append(a.buf, term...)
}

// Len reports the number of buffered, unflushed bytes.
func (a *Accumulator) Len() int { return len(a.buf) }

// Flush writes the accumulated bytes to the connection and resets the
// buffer for reuse.
func (a *Accumulator) Flush() error {
	if len(a.buf) == 0 {
		return nil
	}
	if a.wt > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.wt))
	}
	_, err := a.conn.Write(a.buf)
	a.buf = a.buf[:0]
	return err
}

// Reset discards any buffered bytes without writing them.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}
