package httpcore

import (
	"net"
	"testing"

	"github.com/corehttpd/corehttpd/internal/httperr"
	"github.com/corehttpd/corehttpd/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return a, b
}

func writeAsync(t *testing.T, c net.Conn, s string) {
	t.Helper()
	go func() { _, _ = c.Write([]byte(s)) }()
}

func newTestWindow(t *testing.T, raw string) (*transport.Window, net.Conn) {
	t.Helper()
	server, client := pipe(t)
	writeAsync(t, client, raw)
	return transport.NewConnWithBuffers(server, transport.Options{}, 4096, 4096).Window(), server
}

func TestParseRequestLine_Simple(t *testing.T) {
	win, _ := newTestWindow(t, "GET /index.html HTTP/1.1\r\n")
	req := NewRequest()
	require.NoError(t, ParseRequestLine(win, req))
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/index.html", req.Path)
	assert.Equal(t, Http11, req.Version)
}

func TestParseRequestLine_UnknownMethod(t *testing.T) {
	win, _ := newTestWindow(t, "BREW /a HTTP/1.1\r\n")
	req := NewRequest()
	err := ParseRequestLine(win, req)
	require.Error(t, err)
	assert.Equal(t, httperr.UnsupportedMethod, httperr.KindOf(err))
}

func TestParseRequestLine_Malformed(t *testing.T) {
	win, _ := newTestWindow(t, "GET\r\n")
	req := NewRequest()
	err := ParseRequestLine(win, req)
	require.Error(t, err)
	assert.Equal(t, httperr.Malformed, httperr.KindOf(err))
}

func TestParseHeaders_MissingHostHTTP11(t *testing.T) {
	win, _ := newTestWindow(t, "\r\n")
	req := NewRequest()
	req.Version = Http11
	err := ParseHeaders(win, req, Limits{MaxRequestHeaderCount: 10})
	require.Error(t, err)
	assert.Equal(t, httperr.Malformed, httperr.KindOf(err))
}

func TestParseHeaders_CLAndTEConflict(t *testing.T) {
	win, _ := newTestWindow(t, "Host: a\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n")
	req := NewRequest()
	req.Version = Http11
	err := ParseHeaders(win, req, Limits{MaxRequestHeaderCount: 10})
	require.Error(t, err)
	assert.Equal(t, httperr.Malformed, httperr.KindOf(err))
}

func TestParseHeaders_TooManyHeaders(t *testing.T) {
	win, _ := newTestWindow(t, "Host: a\r\nX-A: 1\r\nX-B: 2\r\n\r\n")
	req := NewRequest()
	req.Version = Http11
	err := ParseHeaders(win, req, Limits{MaxRequestHeaderCount: 2})
	require.Error(t, err)
	e, ok := httperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 431, e.Status)
}

func TestParseHeaders_ExactlyAtLimitSucceeds(t *testing.T) {
	win, _ := newTestWindow(t, "Host: a\r\nX-A: 1\r\n\r\n")
	req := NewRequest()
	req.Version = Http11
	err := ParseHeaders(win, req, Limits{MaxRequestHeaderCount: 2})
	require.NoError(t, err)
}

func TestContentLength(t *testing.T) {
	req := NewRequest()
	req.Headers.Set("Content-Length", "42")
	n, err := ContentLength(req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	empty := NewRequest()
	n, err = ContentLength(empty)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)
}

func TestIsChunked(t *testing.T) {
	req := NewRequest()
	req.Headers.Set("Transfer-Encoding", "chunked")
	assert.True(t, IsChunked(req))
}
