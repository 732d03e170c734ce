package httpcore

import (
	"strings"
	"testing"

	"github.com/corehttpd/corehttpd/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_SetHeaderLastWriteWinsPreservesPosition(t *testing.T) {
	r := NewResponse()
	r.SetHeader("X-A", "1")
	r.SetHeader("Content-Type", "text/plain")
	r.SetHeader("X-A", "2")
	assert.Equal(t, "2", r.Header("X-A"))
	assert.Equal(t, []headerPair{{"X-A", "2"}, {"Content-Type", "text/plain"}}, r.headers)
}

func TestResponse_AddHeaderNoDedup(t *testing.T) {
	r := NewResponse()
	r.AddHeader("Set-Cookie", "a=1")
	r.AddHeader("Set-Cookie", "b=2")
	assert.Len(t, r.headers, 2)
}

func TestResponse_SetBodyStreamTwiceErrors(t *testing.T) {
	r := NewResponse()
	require.NoError(t, r.SetBodyStream(strings.NewReader("x"), 1))
	err := r.SetBodyStream(strings.NewReader("y"), 1)
	require.Error(t, err)
}

func TestResponse_WriteHeaderBlockStatusLast(t *testing.T) {
	server, client := pipe(t)
	acc := transport.NewConnWithBuffers(server, transport.Options{}, 256, 256).Accumulator()

	r := NewResponse()
	r.SetHeader("Content-Length", "0")
	r.SetStatus(404) // mutated after headers were set, must still land in the status line

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, r.WriteHeaderBlock(acc, Http11))
	require.NoError(t, acc.Flush())
	got := string(<-done)
	assert.True(t, strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n"))
	assert.Contains(t, got, "Content-Length: 0\r\n")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\n"))
}

func TestResponse_BodyLength(t *testing.T) {
	r := NewResponse()
	assert.Equal(t, int64(0), r.BodyLength())
	require.NoError(t, r.SetBodyStream(strings.NewReader("hi"), 2))
	assert.Equal(t, int64(2), r.BodyLength())
}
