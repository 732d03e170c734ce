package event

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/corehttpd/corehttpd/internal/vhost"
)

// cacheableContentTypes receives a long max-age Cache-Control per §4.6;
// everything else (and anything the client marked no-cache) gets the
// strict no-store policy.
var cacheableContentTypes = map[string]bool{
	"text/css":       true,
	"text/javascript": true, "application/javascript": true,
	"image/jpeg": true, "image/png": true, "image/gif": true,
	"image/avif": true, "image/svg+xml": true, "image/apng": true,
	"video/x-msvideo": true,
}

// FileHandler implements the Continue routine's default filesystem
// path: translate, stat, expand default files, filter denied
// extensions, set cache and language headers.
type FileHandler struct {
	UICulture string // BCP-47 tag, e.g. "en-US"
}

// NewFileHandler returns a handler defaulting Content-Language to en-US.
func NewFileHandler() *FileHandler {
	return &FileHandler{UICulture: "en-US"}
}

// Serve resolves e's request path against e.VHost and sets response
// headers accordingly, returning the routine the chain should commit:
// NotFound for a missing/denied file, Deny for a denied extension,
// Continue (caller streams the body) otherwise.
func (h *FileHandler) Serve(e *HttpEntity) FileProcessArgs {
	vh := e.VHost
	reqPath := e.Request.Path

	if vh.DeniedExtension(reqPath) {
		return FileProcessArgs{Kind: Deny}
	}

	full, err := vhost.TranslatePath(vh.Root, reqPath)
	if err != nil {
		return FileProcessArgs{Kind: NotFound}
	}

	info, statErr := os.Stat(full)
	if statErr == nil && info.IsDir() {
		full, statErr = h.expandDefaultFile(vh, full)
	}
	if statErr != nil {
		return FileProcessArgs{Kind: NotFound}
	}

	h.applyCacheAndContentHeaders(e, full)
	return FileProcessArgs{Kind: Continue, Path: full}
}

func (h *FileHandler) expandDefaultFile(vh *vhost.Config, dir string) (string, error) {
	for _, name := range vh.DefaultFiles {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

func (h *FileHandler) applyCacheAndContentHeaders(e *HttpEntity, fullPath string) {
	ct := contentTypeFor(fullPath)
	e.Response.SetHeader("Content-Type", ct)

	noCacheRequested := strings.Contains(strings.ToLower(e.Request.Headers.Get("Cache-Control")), "no-cache")
	if cacheableContentTypes[ct] && !noCacheRequested {
		SetCacheable(e, e.VHost.CacheDefault)
	} else {
		SetNoCache(e)
	}

	if isHTML(ct) {
		applySpecialHeaders(e)
	}

	if e.Response.Header("Content-Language") == "" {
		e.Response.SetHeader("Content-Language", h.UICulture)
	}
}

func contentTypeFor(path string) string {
	ext := filepath.Ext(path)
	if ct := mime.TypeByExtension(ext); ct != "" {
		if idx := strings.IndexByte(ct, ';'); idx >= 0 {
			ct = ct[:idx]
		}
		return ct
	}
	return "application/octet-stream"
}

func isHTML(contentType string) bool {
	return contentType == "text/html"
}

func applySpecialHeaders(e *HttpEntity) {
	for name, value := range e.VHost.SpecialHeaders {
		if value != "" {
			e.Response.SetHeader(name, value)
		}
	}
}
