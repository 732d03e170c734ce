package httpcore

import (
	"time"

	"go.uber.org/zap"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/transport"
)

// State is one node of the keep-alive state machine described in §4.4.
type State int

const (
	AwaitRequestLine State = iota
	ReadingHeaders
	DispatchBody
	ExecuteHandler
	WriteResponse
	KeepAlive
	Close
	Upgrade
)

// Config bounds the state machine's parsing/response behavior; it is
// the subset of config.HttpConfig this package consumes directly.
type Config struct {
	Limits
	ResponseHeaderBufferSize int
	ConnectionKeepAlive      time.Duration
	Upload100ContinueAllowed bool
}

// Handler produces a Response for a parsed Request. Returning an error
// lets the caller map it through httperr to a status code; a Handler
// that wants to upgrade the protocol calls conn.Upgrade() itself and
// returns a Response with status 101; Serve writes that response and
// then returns without using the connection again.
type Handler func(req *Request, conn *transport.Conn) (*Response, error)

// Serve runs the keep-alive loop for one accepted connection: parse a
// request, dispatch to handler, write the response, then either loop
// back to AwaitRequestLine or close, per §4.4.
func Serve(conn *transport.Conn, cfg Config, handler Handler, log *zap.Logger) {
	for {
		state := AwaitRequestLine
		req := NewRequest()
		req.RemoteAddr = conn.RemoteAddr().String()

		if cfg.ConnectionKeepAlive > 0 {
			_ = conn.SetDeadline(time.Now().Add(cfg.ConnectionKeepAlive))
		}

		win := conn.Window()
		if err := ParseRequestLine(win, req); err != nil {
			writeErrorAndMaybeClose(conn, cfg, req, err, log)
			return
		}
		state = ReadingHeaders

		if err := ParseHeaders(win, req, cfg.Limits); err != nil {
			writeErrorAndMaybeClose(conn, cfg, req, err, log)
			return
		}
		state = DispatchBody

		if err := dispatchBody(win, req, cfg); err != nil {
			writeErrorAndMaybeClose(conn, cfg, req, err, log)
			return
		}
		state = ExecuteHandler

		resp, err := runHandler(handler, req, conn, log)
		if err != nil {
			writeErrorAndMaybeClose(conn, cfg, req, err, log)
			return
		}
		state = WriteResponse

		if err := writeResponse(conn, cfg, req, resp); err != nil {
			log.Warn("write response failed, closing", zap.Error(err))
			return
		}

		if resp.Status() == 101 {
			state = Upgrade
			return // ownership of the raw conn has moved; nothing left to do here
		}

		if shouldClose(req, resp) {
			state = Close
			return
		}
		state = KeepAlive
		_ = state // loop back to AwaitRequestLine
	}
}

func dispatchBody(win *transport.Window, req *Request, cfg Config) error {
	if IsChunked(req) {
		body, err := ReadChunkedBody(win, cfg.MaxUploadSize)
		if err != nil {
			return err
		}
		req.Body = body
		return maybeParseMultipart(req, cfg)
	}

	cl, err := ContentLength(req)
	if err != nil {
		return err
	}
	if cl < 0 {
		return nil // no body
	}
	if cl > cfg.MaxUploadSize {
		return httperr.New(httperr.LimitExceeded, "content-length exceeds MaxUploadSize")
	}
	if req.Headers.Get("Expect") == "100-continue" {
		if cfg.MaxUploadSize == 0 || cl > cfg.MaxUploadSize {
			return httperr.New(httperr.LimitExceeded, "100-continue expectation rejected").WithStatus(417)
		}
	}
	body, err := ReadContentLengthBody(win, cl, cfg.MaxUploadSize)
	if err != nil {
		return err
	}
	req.Body = body
	return maybeParseMultipart(req, cfg)
}

func maybeParseMultipart(req *Request, cfg Config) error {
	ct := req.Headers.Get("Content-Type")
	if ct == "" || cfg.MaxFormDataUploadSize == 0 {
		return nil
	}
	if _, ok := IsMultipartFormData(ct); !ok {
		return nil // binary body, not multipart
	}
	form, uploads, err := ParseMultipart(ct, req.Body, cfg.MaxFormDataUploadSize, cfg.MaxUploadsPerRequest)
	if err != nil {
		return err
	}
	req.Form = form
	req.Uploads = uploads
	return nil
}

func runHandler(handler Handler, req *Request, conn *transport.Conn, log *zap.Logger) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic", zap.Any("recover", r))
			resp = nil
			err = httperr.Newf(httperr.Internal, "handler panic: %v", r)
		}
	}()
	return handler(req, conn)
}

func writeResponse(conn *transport.Conn, cfg Config, req *Request, resp *Response) error {
	acc := conn.Accumulator()
	if err := resp.WriteHeaderBlock(acc, req.Version); err != nil {
		return err
	}
	if acc.Len() > cfg.ResponseHeaderBufferSize {
		acc.Reset()
		errResp := NewResponse()
		errResp.SetStatus(500)
		errResp.SetHeader("Content-Length", "0")
		_ = errResp.WriteHeaderBlock(acc, req.Version)
		return acc.Flush()
	}
	if err := acc.Flush(); err != nil {
		return err
	}
	switch resp.bodyKind {
	case BodyStream:
		if resp.bodyStream != nil {
			buf := make([]byte, 32*1024)
			for {
				n, rerr := resp.bodyStream.Read(buf)
				if n > 0 {
					acc.AppendBytes(buf[:n])
					if err := acc.Flush(); err != nil {
						return err
					}
				}
				if rerr != nil {
					break
				}
			}
		}
	case BodyReader:
		if resp.bodyReader != nil {
			return resp.bodyReader(accWriter{acc})
		}
	}
	return nil
}

type accWriter struct{ acc *transport.Accumulator }

func (w accWriter) Write(p []byte) (int, error) {
	w.acc.AppendBytes(p)
	if err := w.acc.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func shouldClose(req *Request, resp *Response) bool {
	if req.Headers.Get("Connection") == "close" {
		return true
	}
	if resp.Header("Connection") == "close" {
		return true
	}
	if req.Version == Http10 && !isKeepAliveRequested(req) {
		return true
	}
	return false
}

func isKeepAliveRequested(req *Request) bool {
	return req.Headers.Get("Connection") == "keep-alive"
}

func writeErrorAndMaybeClose(conn *transport.Conn, cfg Config, req *Request, err error, log *zap.Logger) {
	kind := httperr.KindOf(err)
	status := kind.Status()
	if e, ok := httperr.As(err); ok {
		status = e.Status
	}
	log.Debug("request failed", zap.String("kind", kind.String()), zap.Int("status", status), zap.Error(err))

	if kind == httperr.TransportClosed || kind == httperr.TransportTimeout {
		return // close silently / without a response
	}

	resp := NewResponse()
	resp.SetStatus(status)
	resp.SetHeader("Connection", "close")
	resp.SetHeader("Content-Length", "0")
	acc := conn.Accumulator()
	_ = resp.WriteHeaderBlock(acc, req.Version)
	_ = acc.Flush()
}
