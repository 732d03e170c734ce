package event

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corehttpd/corehttpd/internal/httpcore"
	"github.com/corehttpd/corehttpd/internal/vhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFsEntity(t *testing.T, root, path string) *HttpEntity {
	t.Helper()
	req := httpcore.NewRequest()
	req.Path = path
	resp := httpcore.NewResponse()
	vh := &vhost.Config{
		Name:         "test",
		Root:         root,
		DefaultFiles: []string{"index.html"},
		CacheDefault: time.Hour,
		SpecialHeaders: map[string]string{
			"X-Content-Type-Options": "nosniff",
		},
	}
	return NewHttpEntity(req, resp, vh, nil)
}

func TestFileHandler_ServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0644))

	e := newFsEntity(t, dir, "/style.css")
	args := NewFileHandler().Serve(e)

	assert.Equal(t, Continue, args.Kind)
	assert.Equal(t, "text/css", e.Response.Header("Content-Type"))
	assert.Contains(t, e.Response.Header("Cache-Control"), "public")
}

func TestFileHandler_MissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	e := newFsEntity(t, dir, "/missing.css")
	args := NewFileHandler().Serve(e)
	assert.Equal(t, NotFound, args.Kind)
}

func TestFileHandler_DeniedExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.exe"), []byte("x"), 0644))
	e := newFsEntity(t, dir, "/app.exe")
	e.VHost.DeniedExtensions = map[string]bool{"exe": true}

	args := NewFileHandler().Serve(e)
	assert.Equal(t, Deny, args.Kind)
}

func TestFileHandler_DirectoryExpandsDefaultFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	e := newFsEntity(t, dir, "/")

	args := NewFileHandler().Serve(e)
	assert.Equal(t, Continue, args.Kind)
	assert.Contains(t, args.Path, "index.html")
}

func TestFileHandler_HTMLGetsSpecialHeadersAndNoCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	e := newFsEntity(t, dir, "/index.html")

	NewFileHandler().Serve(e)
	assert.Equal(t, "nosniff", e.Response.Header("X-Content-Type-Options"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", e.Response.Header("Cache-Control"))
	assert.Equal(t, "en-US", e.Response.Header("Content-Language"))
}

func TestFileHandler_NoCacheHeaderHonored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0644))
	e := newFsEntity(t, dir, "/style.css")
	e.Request.Headers.Set("Cache-Control", "no-cache")

	NewFileHandler().Serve(e)
	assert.Equal(t, "no-cache, no-store, must-revalidate", e.Response.Header("Cache-Control"))
}

