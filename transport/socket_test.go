package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocketPair(t *testing.T) (Transport, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return NewSocket(local), remote
}

func TestSocket_ReadLine_CRLF(t *testing.T) {
	tr, remote := newSocketPair(t)

	go func() {
		_, _ = remote.Write([]byte("24.6\r\n"))
	}()

	line, err := tr.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "24.6\r\n", line)
}

func TestSocket_ReadLine_AckSentinel(t *testing.T) {
	tr, remote := newSocketPair(t)

	go func() {
		_, _ = remote.Write([]byte("*"))
	}()

	line, err := tr.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "*", line)
}

func TestSocket_ReadLine_TimeoutReturnsPartial(t *testing.T) {
	tr, remote := newSocketPair(t)

	go func() {
		// No terminator, so the reader must give up at the deadline.
		_, _ = remote.Write([]byte("garb"))
	}()

	line, err := tr.ReadLine(100 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "garb", line)
}

func TestSocket_ReadLine_SilentTimeout(t *testing.T) {
	tr, _ := newSocketPair(t)

	start := time.Now()
	line, err := tr.ReadLine(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, line)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSocket_Read_Exact(t *testing.T) {
	tr, remote := newSocketPair(t)

	go func() {
		_, _ = remote.Write([]byte("ab"))
		_, _ = remote.Write([]byte("c"))
	}()

	buf, err := tr.Read(3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), buf)
}

func TestSocket_Read_ShortOnTimeout(t *testing.T) {
	tr, remote := newSocketPair(t)

	go func() {
		_, _ = remote.Write([]byte("x"))
	}()

	buf, err := tr.Read(10, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []byte("x"), buf)
}

func TestSocket_Read_ClosedPeer(t *testing.T) {
	tr, remote := newSocketPair(t)

	require.NoError(t, remote.Close())

	_, err := tr.Read(1, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSocket_Write(t *testing.T) {
	tr, remote := newSocketPair(t)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 6)
		n, _ := remote.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, tr.Write([]byte("1xE0\r")))
	assert.Equal(t, []byte("1xE0\r"), <-done)
}
