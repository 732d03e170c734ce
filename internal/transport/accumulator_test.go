package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_FlushWritesBufferedBytes(t *testing.T) {
	server, client := pipeConn(t)
	a := newAccumulator(server, 64, time.Second)
	a.AppendString("HTTP/1.1 200 OK\r\n")
	a.AppendString("Content-Length: 0\r\n")
	a.WriteTerminator("\r\n")
	assert.Equal(t, len("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"), a.Len())

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, a.Flush())
	got := <-done
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", string(got))
	assert.Equal(t, 0, a.Len())
}

func TestAccumulator_FlushEmptyIsNoop(t *testing.T) {
	server, _ := pipeConn(t)
	a := newAccumulator(server, 16, time.Second)
	assert.NoError(t, a.Flush())
}

func TestAccumulator_Reset(t *testing.T) {
	server, _ := pipeConn(t)
	a := newAccumulator(server, 16, time.Second)
	a.AppendByte('x')
	a.Reset()
	assert.Equal(t, 0, a.Len())
}

func TestConn_Upgrade(t *testing.T) {
	server, client := pipeConn(t)
	go func() { _, _ = client.Write([]byte("leftover")) }()

	c := newConn(server, Options{})
	n, err := c.Window().FillBuffer()
	require.NoError(t, err)
	require.Equal(t, 8, n)
	// simulate the parser having consumed nothing yet; Upgrade should
	// replay these bytes to the handed-off stream.
	up, err := c.Upgrade()
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err = up.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "leftover", string(buf[:n]))

	// closing the upgraded wrapper must not close the transport
	assert.NoError(t, up.Close())

	_, err = c.Upgrade()
	assert.Error(t, err)
}

func TestConn_CloseAfterUpgradeIsNoop(t *testing.T) {
	server, _ := pipeConn(t)
	c := newConn(server, Options{})
	_, err := c.Upgrade()
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

var _ io.Closer = (*Conn)(nil)
var _ net.Conn = (*upgradedConn)(nil)
