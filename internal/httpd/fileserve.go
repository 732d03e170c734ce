package httpd

import (
	"bytes"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/corehttpd/corehttpd/internal/compress"
	"github.com/corehttpd/corehttpd/internal/httpcore"
)

// writeFileBody opens path (already resolved and header-stamped by
// event.FileHandler/ApplyRoutine) and attaches it to resp, compressing
// the full body first when negotiation selects a codec. §4.4 says an
// active compression leaves Content-Length omitted in favor of
// chunked framing, but internal/httpcore's response writer
// (writeResponse) never frames a body in chunks (EncodeChunk exists
// but writeResponse does not call it) — rather than claim a
// Transfer-Encoding the writer does not produce, compression here is
// buffered: the whole body is read and
// compressed up front, so the real compressed length is known and a
// correct Content-Length can still be sent. See DESIGN.md.
func (s *Server) writeFileBody(req *httpcore.Request, resp *httpcore.Response, path string) error {
	f, err := os.Open(path)
	if err != nil {
		resp.SetStatus(404)
		return nil
	}

	info, statErr := f.Stat()
	if statErr != nil || info.IsDir() {
		_ = f.Close()
		resp.SetStatus(404)
		return nil
	}
	size := info.Size()

	typ := s.negotiateEncoding(req, size)
	if typ == compress.None {
		return resp.SetBodyStream(&autoCloseReader{f: f}, size)
	}

	raw, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		resp.SetStatus(500)
		return nil
	}

	compressed, err := s.compressAll(typ, raw)
	if err != nil {
		s.log.Warn("compression failed, serving uncompressed", zap.String("path", path), zap.Error(err))
		return resp.SetBodyStream(bytes.NewReader(raw), int64(len(raw)))
	}

	resp.SetHeader("Content-Encoding", typ.String())
	resp.AddHeader("Vary", "Accept-Encoding")
	return resp.SetBodyStream(bytes.NewReader(compressed), int64(len(compressed)))
}

// autoCloseReader closes its underlying file the moment Read reports
// any error (including io.EOF), since internal/httpcore's response
// writer drains a BodyStream to completion but never closes it.
type autoCloseReader struct{ f *os.File }

func (a *autoCloseReader) Read(p []byte) (int, error) {
	n, err := a.f.Read(p)
	if err != nil {
		_ = a.f.Close()
	}
	return n, err
}
