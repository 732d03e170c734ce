package httpcore

import (
	"strconv"
	"strings"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/transport"
)

// ReadChunkedBody decodes a chunked request body from win, enforcing
// maxSize against the decoded (post-de-chunking) byte count as §9's
// Open Question decision specifies, and returns httperr.LimitExceeded
// (413) on overflow.
func ReadChunkedBody(win *transport.Window, maxSize int64) ([]byte, error) {
	var out []byte
	for {
		sizeLine, ok, err := win.ReadLine()
		if err != nil {
			return nil, httperr.Wrap(httperr.TransportClosed, "read chunk size", err)
		}
		if !ok {
			return nil, httperr.New(httperr.Malformed, "chunk size line exceeds buffer")
		}
		sizeStr := strings.TrimSpace(strings.SplitN(string(sizeLine), ";", 2)[0])
		size, err := strconv.ParseInt(sizeStr, 16, 64)
		if err != nil || size < 0 {
			return nil, httperr.New(httperr.Malformed, "malformed chunk size")
		}
		if size == 0 {
			// consume the trailing CRLF-only terminator (no trailers supported)
			if _, ok, err := win.ReadLine(); err != nil {
				return nil, httperr.Wrap(httperr.TransportClosed, "read chunk terminator", err)
			} else if !ok {
				return nil, httperr.New(httperr.Malformed, "missing chunk terminator")
			}
			return out, nil
		}
		if int64(len(out))+size > maxSize {
			return nil, httperr.New(httperr.LimitExceeded, "chunked body exceeds max upload size")
		}
		chunk, err := readExact(win, int(size))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		// each chunk is followed by a bare CRLF
		if _, ok, err := win.ReadLine(); err != nil {
			return nil, httperr.Wrap(httperr.TransportClosed, "read chunk CRLF", err)
		} else if !ok {
			return nil, httperr.New(httperr.Malformed, "missing chunk CRLF")
		}
	}
}

// readExact drains exactly n bytes from win, filling from the
// connection as needed.
func readExact(win *transport.Window, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if win.Len() == 0 {
			if _, err := win.FillBuffer(); err != nil {
				return nil, httperr.Wrap(httperr.TransportClosed, "read chunk body", err)
			}
			continue
		}
		need := n - len(out)
		avail := win.Bytes()
		if need > len(avail) {
			need = len(avail)
		}
		out = append(out, avail[:need]...)
		win.Advance(need)
	}
	return out, nil
}

// ReadContentLengthBody drains exactly n bytes from win, enforcing
// maxSize.
func ReadContentLengthBody(win *transport.Window, n int64, maxSize int64) ([]byte, error) {
	if n > maxSize {
		return nil, httperr.New(httperr.LimitExceeded, "content-length exceeds max upload size")
	}
	return readExact(win, int(n))
}

// EncodeChunk writes one chunk (size line, data, CRLF) into acc. A
// zero-length data slice writes the terminal 0-size chunk (without
// trailers).
func EncodeChunk(acc *transport.Accumulator, data []byte) {
	acc.AppendString(strconv.FormatInt(int64(len(data)), 16))
	acc.WriteTerminator("\r\n")
	if len(data) > 0 {
		acc.AppendBytes(data)
		acc.WriteTerminator("\r\n")
	} else {
		acc.WriteTerminator("\r\n")
	}
}
