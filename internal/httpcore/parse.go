package httpcore

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/transport"
)

// Limits bounds parsing behavior, sourced from config.HttpConfig.
type Limits struct {
	MaxRequestHeaderCount int
	MaxUploadSize         int64
	MaxFormDataUploadSize int64 // 0 disables multipart parsing
	MaxUploadsPerRequest  int
}

// ParseRequestLine reads and validates the request line from win,
// returning httperr.Malformed for a missing/malformed line and
// httperr.UnsupportedMethod for a method outside the recognized set.
func ParseRequestLine(win *transport.Window, req *Request) error {
	line, ok, err := readLine(win)
	if err != nil {
		return httperr.Wrap(httperr.TransportClosed, "read request line", err)
	}
	if !ok {
		return httperr.New(httperr.Malformed, "request line exceeds header buffer")
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return httperr.New(httperr.Malformed, "malformed request line")
	}
	method, target, versionStr := parts[0], parts[1], parts[2]

	if !IsRecognizedMethod(method) {
		return httperr.New(httperr.UnsupportedMethod, "unrecognized method "+method)
	}

	version, ok := parseVersion(versionStr)
	if !ok {
		return httperr.New(httperr.Malformed, "malformed HTTP version")
	}

	u, err := url.ParseRequestURI(target)
	if err != nil {
		return httperr.Wrap(httperr.Malformed, "malformed request target", err)
	}

	req.Method = method
	req.Target = target
	req.Path = u.Path
	req.Query = u.Query()
	req.Version = version
	return nil
}

func parseVersion(s string) (Version, bool) {
	switch s {
	case "HTTP/0.9":
		return Http09, true
	case "HTTP/1.0":
		return Http10, true
	case "HTTP/1.1":
		return Http11, true
	default:
		return 0, false
	}
}

// ParseHeaders reads header lines until the CRLFCRLF terminator,
// enforcing MaxRequestHeaderCount and the Host/CL-TE-conflict rules.
func ParseHeaders(win *transport.Window, req *Request, limits Limits) error {
	count := 0
	for {
		line, ok, err := readLine(win)
		if err != nil {
			return httperr.Wrap(httperr.TransportClosed, "read header", err)
		}
		if !ok {
			return httperr.New(httperr.Malformed, "header buffer exhausted")
		}
		trimmed := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if trimmed == "" {
			break // CRLFCRLF terminator reached
		}
		idx := strings.IndexByte(trimmed, ':')
		if idx < 0 {
			return httperr.New(httperr.Malformed, "header missing colon")
		}
		name := trimmed[:idx]
		value := strings.TrimSpace(trimmed[idx+1:])
		req.Headers.Set(name, value)
		count++
		if count > limits.MaxRequestHeaderCount {
			return httperr.New(httperr.LimitExceeded, "too many headers").WithStatus(431)
		}
	}

	if req.Version == Http11 && req.Headers.Get("Host") == "" {
		return httperr.New(httperr.Malformed, "missing Host header")
	}

	hasCL := req.Headers.Has("Content-Length")
	hasTE := req.Headers.Has("Transfer-Encoding")
	if hasCL && hasTE {
		return httperr.New(httperr.Malformed, "Content-Length and Transfer-Encoding both present")
	}
	return nil
}

// ContentLength returns the parsed Content-Length header, or -1 if
// absent, or an error if present but malformed.
func ContentLength(req *Request) (int64, error) {
	v := req.Headers.Get("Content-Length")
	if v == "" {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1, httperr.New(httperr.Malformed, "malformed Content-Length")
	}
	return n, nil
}

// IsChunked reports whether Transfer-Encoding: chunked was sent.
func IsChunked(req *Request) bool {
	return strings.EqualFold(req.Headers.Get("Transfer-Encoding"), "chunked")
}

func readLine(win *transport.Window) (string, bool, error) {
	line, ok, err := win.ReadLine()
	return string(line), ok, err
}
