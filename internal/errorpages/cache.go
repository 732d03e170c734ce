// Package errorpages implements the error-file half of C9: a small
// immutable cache of canned response bodies keyed by status code,
// loaded once at config time and served in place of a bare status
// line when the about-to-be-written response has no body of its own.
package errorpages

import (
	"bytes"
	"strings"

	"github.com/corehttpd/corehttpd/internal/httpcore"
)

// Page is one configured error body.
type Page struct {
	Status      int
	ContentType string
	Body        []byte
}

// Cache holds the configured error pages, keyed by status code. It is
// built once from configuration and never mutated afterward, so reads
// need no locking — the same shape as internal/proxy's httpCache, minus
// the write path and TTL eviction that request-body caching needs but
// a fixed set of error pages does not.
type Cache struct {
	pages map[int]Page
}

// NewCache builds an immutable cache from the given pages. Later
// entries for the same status overwrite earlier ones.
func NewCache(pages []Page) *Cache {
	c := &Cache{pages: make(map[int]Page, len(pages))}
	for _, p := range pages {
		c.pages[p.Status] = p
	}
	return c
}

// Lookup returns the configured page for status, if any.
func (c *Cache) Lookup(status int) (Page, bool) {
	p, ok := c.pages[status]
	return p, ok
}

// acceptsHTML reports whether an Accept header indicates the client
// will take an HTML error body (missing header is treated as
// acceptable, matching most clients' implicit "*/*").
func acceptsHTML(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(part, ";")
		mt = strings.TrimSpace(strings.ToLower(mt))
		if mt == "*/*" || mt == "text/*" || mt == "text/html" {
			return true
		}
	}
	return false
}

// Apply writes the cached body for resp's current status onto resp,
// preserving the status code, when: a page is configured for that
// status, the response does not already carry a body, and the
// request's Accept header doesn't explicitly rule out HTML. It is a
// no-op otherwise, leaving resp untouched for the caller's own body to
// fill in.
func (c *Cache) Apply(req *httpcore.Request, resp *httpcore.Response) error {
	if resp.BodyLength() != 0 {
		return nil
	}
	page, ok := c.Lookup(resp.Status())
	if !ok {
		return nil
	}
	if req != nil && !acceptsHTML(req.Headers.Get("Accept")) {
		return nil
	}

	body := page.Body
	contentType := page.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	resp.SetHeader("Content-Type", contentType)
	return resp.SetBodyStream(bytes.NewReader(body), int64(len(body)))
}
