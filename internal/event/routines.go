package event

import (
	"os"
	"time"

	"github.com/corehttpd/corehttpd/internal/vhost"
)

// SetNoCache sets the strict no-cache policy used by every non-2xx
// terminal routine and by non-cacheable content types, per §4.6.
func SetNoCache(e *HttpEntity) {
	e.Response.SetHeader("Cache-Control", "no-cache, no-store, must-revalidate")
}

// SetCacheable sets the public, max-age policy for cacheable content
// types, per §4.6's cache-policy-by-content-type table.
func SetCacheable(e *HttpEntity, maxAge time.Duration) {
	if maxAge <= 0 {
		SetNoCache(e)
		return
	}
	e.Response.SetHeader("Cache-Control", "public, max-age="+formatSeconds(maxAge))
}

func formatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	buf := make([]byte, 0, 8)
	return string(appendInt(buf, secs))
}

func appendInt(buf []byte, v int64) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// ApplyRoutine commits e.Args (the chain's terminal decision) to the
// response: status code and cache headers for the fixed-outcome
// routines, re-entering the file handler for ServeOther/ServeOtherFQ.
// Continue and VirtualSkip are handled by the caller (Continue already
// populated the response via FileHandler.Serve; VirtualSkip means the
// middleware already wrote the full response).
func ApplyRoutine(e *HttpEntity, fs *FileHandler) {
	switch e.Args.Kind {
	case Deny:
		e.Response.SetStatus(403)
		SetNoCache(e)
	case Error:
		e.Response.SetStatus(500)
		SetNoCache(e)
	case NotFound:
		e.Response.SetStatus(404)
		SetNoCache(e)
	case Redirect:
		e.Response.SetStatus(301)
		e.Response.SetHeader("Location", e.Args.URL)
	case ServeOther:
		full, err := vhost.TranslatePath(e.VHost.Root, e.Args.Path)
		if err != nil {
			e.Response.SetStatus(404)
			SetNoCache(e)
			return
		}
		serveOtherPath(e, fs, full)
	case ServeOtherFQ:
		serveOtherPath(e, fs, e.Args.Path)
	case Continue, VirtualSkip:
		// already handled
	}
}

func serveOtherPath(e *HttpEntity, fs *FileHandler, fullPath string) {
	if _, err := os.Stat(fullPath); err != nil {
		e.Response.SetStatus(404)
		SetNoCache(e)
		return
	}
	fs.applyCacheAndContentHeaders(e, fullPath)
	e.Args.Path = fullPath
}
