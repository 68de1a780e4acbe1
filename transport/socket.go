package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// socketTransport drives a TCP connection to a serial-to-Ethernet gateway.
//
// TCP gives no native "read line with timeout", so ReadLine accumulates the
// line byte by byte, with each read blocked on I/O readiness under a
// connection deadline rather than retried in a spin loop.
type socketTransport struct {
	conn net.Conn
}

// NewSocket wraps an established connection to a serial gateway. Most
// callers use Dial with a "host:port" address instead.
func NewSocket(conn net.Conn) Transport {
	return &socketTransport{conn: conn}
}

func (t *socketTransport) Write(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.conn.Write(p[written:])
		written += n

		if err != nil {
			return fmt.Errorf("%w: socket write: %w", ErrClosed, err)
		}
	}

	return nil
}

func (t *socketTransport) Read(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	deadline := time.Now().Add(timeout)

	for read < n {
		if time.Until(deadline) <= 0 {
			return buf[:read], ErrTimeout
		}

		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return buf[:read], fmt.Errorf("%w: set read deadline: %w", ErrClosed, err)
		}

		m, err := t.conn.Read(buf[read:])
		read += m

		if err != nil {
			return buf[:read], classifySocketErr(err)
		}
	}

	return buf, nil
}

func (t *socketTransport) ReadLine(timeout time.Duration) (string, error) {
	var line []byte

	one := make([]byte, 1)
	deadline := time.Now().Add(timeout)

	for !isLineTerminated(line) {
		if time.Until(deadline) <= 0 {
			return string(line), ErrTimeout
		}

		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return string(line), fmt.Errorf("%w: set read deadline: %w", ErrClosed, err)
		}

		m, err := t.conn.Read(one)
		if m > 0 {
			line = append(line, one[0])
		}

		if err != nil {
			return string(line), classifySocketErr(err)
		}
	}

	return string(line), nil
}

func (t *socketTransport) Close() error {
	return t.conn.Close()
}

func classifySocketErr(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return fmt.Errorf("%w: socket read: %w", ErrClosed, err)
}
