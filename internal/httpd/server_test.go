package httpd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	kgzip "github.com/klauspost/compress/gzip"

	"github.com/corehttpd/corehttpd/internal/compress"
	"github.com/corehttpd/corehttpd/internal/config"
	"github.com/corehttpd/corehttpd/internal/httpcore"
	"github.com/corehttpd/corehttpd/internal/plugin"
	"github.com/corehttpd/corehttpd/internal/transport"
)

// docJSON renders a minimal single-vhost document rooted at root, with
// an optional 404 error file and a benchmark-free plugins block left
// out entirely.
func docJSON(root string, notFoundPath string) string {
	errorFiles := ""
	if notFoundPath != "" {
		errorFiles = fmt.Sprintf(`"error_files": [{"code": 404, "path": %q}],`, notFoundPath)
	}
	return fmt.Sprintf(`{
  "http": {"compression_limit": 1024, "compression_minimum": 0, "compression_level": "Fastest"},
  "virtual_hosts": [
    {
      "name": "main",
      "hostnames": ["example.com"],
      "interfaces": [{"address": "", "port": 0}],
      "path": %q,
      %s
      "cors": {}
    }
  ]
}`, root, errorFiles)
}

func writeDoc(t *testing.T, content string) *config.Document {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "httpd.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	doc, err := config.Load(path)
	require.NoError(t, err)
	return doc
}

// pipeConn builds a transport.Conn backed by an in-memory net.Pipe,
// standing in for an accepted TCP socket in tests that never touch the
// network.
func pipeConn(t *testing.T) *transport.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	return transport.NewConnWithBuffers(server, transport.Options{}, 8192, 8192)
}

func newRequest(method, path, host string) *httpcore.Request {
	req := httpcore.NewRequest()
	req.Method = method
	req.Path = path
	req.Target = path
	req.Version = httpcore.Http11
	req.Headers.Set("Host", host)
	req.RemoteAddr = "203.0.113.5:4242"
	return req
}

func TestHandler_ServesStaticFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>hi</html>"), 0o644))

	doc := writeDoc(t, docJSON(root, ""))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/index.html", "example.com"), pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, int64(len("<html>hi</html>")), resp.BodyLength())
}

func TestHandler_MissingFileIsNotFound(t *testing.T) {
	root := t.TempDir()
	doc := writeDoc(t, docJSON(root, ""))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/nope.html", "example.com"), pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status())
}

func TestHandler_AppliesConfiguredErrorPage(t *testing.T) {
	root := t.TempDir()
	errDir := t.TempDir()
	errPath := filepath.Join(errDir, "404.html")
	require.NoError(t, os.WriteFile(errPath, []byte("<h1>missing</h1>"), 0o644))

	doc := writeDoc(t, docJSON(root, errPath))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/nope.html", "example.com"), pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status())
	assert.Equal(t, int64(len("<h1>missing</h1>")), resp.BodyLength())
}

func TestHandler_NoVHostMatchedIsNotFound(t *testing.T) {
	root := t.TempDir()
	doc := writeDoc(t, docJSON(root, ""))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/index.html", "nowhere.invalid"), pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status())
}

func TestHandler_CompressesLargeCompressibleBody(t *testing.T) {
	root := t.TempDir()
	body := strings.Repeat("compress me please ", 40) // within the 1024-byte compression_limit
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.html"), []byte(body), 0o644))

	doc := writeDoc(t, docJSON(root, ""))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	req := newRequest("GET", "/big.html", "example.com")
	req.Headers.Set("Accept-Encoding", "gzip")
	resp, err := srv.Handler(req, pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, "gzip", resp.Header("Content-Encoding"))
	assert.Less(t, resp.BodyLength(), int64(len(body)))
}

func TestHandler_SkipsCompressionWithoutAcceptEncoding(t *testing.T) {
	root := t.TempDir()
	body := strings.Repeat("plain please ", 200)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.html"), []byte(body), 0o644))

	doc := writeDoc(t, docJSON(root, ""))
	srv, err := NewServer(doc, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/big.html", "example.com"), pipeConn(t))
	require.NoError(t, err)
	assert.Empty(t, resp.Header("Content-Encoding"))
	assert.Equal(t, int64(len(body)), resp.BodyLength())
}

// fakeEndpointPlugin publishes a single "/status" endpoint that writes
// a fixed body, standing in for a real plugin.Implementation in tests.
type fakeEndpointPlugin struct{}

func (fakeEndpointPlugin) Name() string            { return "status" }
func (fakeEndpointPlugin) Init(map[string]string) error { return nil }
func (fakeEndpointPlugin) Unload() error           { return nil }
func (fakeEndpointPlugin) Load(pool *plugin.ServicePool) ([]plugin.Endpoint, error) {
	return []plugin.Endpoint{{
		Path: "/status",
		Handler: func(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
			resp := httpcore.NewResponse()
			resp.SetStatus(200)
			body := []byte("ok")
			_ = resp.SetBodyStream(bytes.NewReader(body), int64(len(body)))
			return resp, nil
		},
	}}, nil
}

func TestHandler_RoutesToPluginEndpoint(t *testing.T) {
	root := t.TempDir()
	doc := writeDoc(t, docJSON(root, ""))

	registry := plugin.NewRegistry(zap.NewNop(), nil)
	loader := plugin.NewManualLoader("status", []plugin.Factory{func() plugin.Implementation { return fakeEndpointPlugin{} }}, nil, zap.NewNop())
	require.NoError(t, registry.LoadUnit(loader, []string{"main"}))

	srv, err := NewServer(doc, registry, nil, nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := srv.Handler(newRequest("GET", "/status", "example.com"), pipeConn(t))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, int64(2), resp.BodyLength())
}

func TestCompressAll_RoundTripsThroughManager(t *testing.T) {
	srv := &Server{compressor: compress.NewManager(), cfg: config.HttpConfig{CompressionLevel: config.CompressionOptimal}}
	payload := bytes.Repeat([]byte("round trip via the block api "), 1000)

	compressed, err := srv.compressAll(compress.Gzip, payload)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(payload))

	r, err := kgzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
