package transport

import (
	"io"
	"net"
	"time"
)

// Window is a sliding read buffer over a net.Conn. The parser reads
// request-line/header bytes directly out of buf[start:end]; FillBuffer
// appends newly read bytes at end, CompactBufferWindow shifts the
// unread interval to offset 0 so FillBuffer has room to grow, and
// Advance moves start forward as the parser consumes bytes.
type Window struct {
	conn  net.Conn
	buf   []byte
	start int
	end   int
	rt    time.Duration
}

func newWindow(conn net.Conn, size int, recvTimeout time.Duration) *Window {
	return &Window{conn: conn, buf: make([]byte, size), rt: recvTimeout}
}

// Len returns the number of unread bytes currently buffered.
func (w *Window) Len() int { return w.end - w.start }

// Bytes returns the unread interval [start, end) without copying.
func (w *Window) Bytes() []byte { return w.buf[w.start:w.end] }

// Advance moves the window start forward by n, consuming n bytes.
func (w *Window) Advance(n int) {
	w.start += n
	if w.start > w.end {
		w.start = w.end
	}
}

// CompactBufferWindow shifts the unread interval to offset 0 and
// returns the number of free bytes now available at the end of buf.
func (w *Window) CompactBufferWindow() int {
	if w.start > 0 {
		n := copy(w.buf, w.buf[w.start:w.end])
		w.start = 0
		w.end = n
	}
	return len(w.buf) - w.end
}

// FillBuffer reads more bytes from the connection into the free space
// at the end of the window, compacting first if there's no room left.
// It returns the number of bytes read, or an error (including io.EOF
// when the peer closed cleanly).
func (w *Window) FillBuffer() (int, error) {
	if len(w.buf)-w.end == 0 {
		if w.CompactBufferWindow() == 0 {
			// window fully occupied by unread bytes; caller's header
			// is larger than HeaderBufferSize.
			return 0, io.ErrShortBuffer
		}
	}
	if w.rt > 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.rt))
	}
	n, err := w.conn.Read(w.buf[w.end:])
	w.end += n
	return n, err
}

// ReadLine returns the bytes up to and including the next CRLF within
// the currently buffered window, filling from the connection as
// needed. ok is false if the window filled up without finding CRLF.
func (w *Window) ReadLine() (line []byte, ok bool, err error) {
	for {
		if idx := indexCRLF(w.Bytes()); idx >= 0 {
			line = w.buf[w.start : w.start+idx+2]
			w.Advance(idx + 2)
			return line, true, nil
		}
		n, ferr := w.FillBuffer()
		if ferr != nil {
			if ferr == io.ErrShortBuffer {
				return nil, false, nil
			}
			return nil, false, ferr
		}
		if n == 0 {
			return nil, false, io.EOF
		}
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// InitialDataBuffer holds bytes the parser read past the header
// terminator that belong to the request body; its sole operation is a
// copy-read that drains into the handler's first Read call.
type InitialDataBuffer struct {
	data []byte
}

func (b *InitialDataBuffer) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

// Remaining reports how many bytes are still pending.
func (b *InitialDataBuffer) Remaining() int { return len(b.data) }
