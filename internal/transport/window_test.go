package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return a, b
}

func TestWindow_ReadLine(t *testing.T) {
	server, client := pipeConn(t)
	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n"))
	}()

	w := newWindow(server, 256, time.Second)
	line, ok, err := w.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GET / HTTP/1.1\r\n", string(line))

	line2, ok, err := w.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Host: a\r\n", string(line2))
}

func TestWindow_CompactBufferWindow(t *testing.T) {
	server, client := pipeConn(t)
	go func() { _, _ = client.Write([]byte("abc\r\n")) }()

	w := newWindow(server, 16, time.Second)
	_, err := w.FillBuffer()
	require.NoError(t, err)
	w.Advance(3) // consume "abc"
	free := w.CompactBufferWindow()
	assert.Equal(t, 16-2, free) // "\r\n" remains buffered
	assert.Equal(t, "\r\n", string(w.Bytes()))
}

func TestWindow_FillBufferShortBuffer(t *testing.T) {
	server, client := pipeConn(t)
	go func() { _, _ = client.Write([]byte("01234567")) }()

	w := newWindow(server, 4, time.Second)
	_, err := w.FillBuffer()
	require.NoError(t, err)
	// buffer is full of unread bytes with no room to compact into
	_, err = w.FillBuffer()
	assert.Error(t, err)
}

func TestInitialDataBuffer_Read(t *testing.T) {
	b := &InitialDataBuffer{data: []byte("hello")}
	assert.Equal(t, 5, b.Remaining())
	buf := make([]byte, 3)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hel", string(buf[:n]))
	assert.Equal(t, 2, b.Remaining())
}
