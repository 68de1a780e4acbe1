// Package transport provides the byte-level link abstraction used by the
// link engine: a bounded-wait read/write channel over either a directly
// attached serial port or a TCP connection to a serial-to-Ethernet gateway.
//
// Both variants speak the same pump line protocol: outbound commands are
// CR-terminated, responses end with CRLF or the single acknowledgment
// character '*', and unsolicited status lines arrive interleaved with
// response traffic. The transport does not interpret any of it; it only
// frames lines and bounds every read with a timeout so the owning protocol
// loop can never block indefinitely.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fluidline/regloicc/logger"
)

// Sentinel errors surfaced by all transport variants.
var (
	// ErrTimeout indicates a bounded wait elapsed before the requested data
	// arrived. Reads return it together with any partial data collected, so
	// callers can distinguish "nothing yet" from "garbage on the line".
	ErrTimeout = errors.New("transport: read timed out")

	// ErrClosed indicates the underlying link is closed or unusable.
	ErrClosed = errors.New("transport: connection closed")
)

// Line terminators recognized by ReadLine.
const (
	lineEnd = "\r\n"
	ackByte = '*'
)

// Transport is a byte channel with bounded-wait reads.
//
// Implementations are not goroutine-safe: the link engine's worker is the
// sole user of a transport once the engine owns it.
type Transport interface {
	// Write writes all of p to the link.
	Write(p []byte) error

	// Read reads up to n bytes, waiting at most timeout. It returns the
	// bytes collected so far together with ErrTimeout when the wait
	// elapses early, and ErrClosed when the link is dead.
	Read(n int, timeout time.Duration) ([]byte, error)

	// ReadLine reads a single line terminated by CRLF or by the
	// acknowledgment character '*', waiting at most timeout for the whole
	// line. Partial data collected before the deadline is returned with
	// ErrTimeout.
	ReadLine(timeout time.Duration) (string, error)

	// Close releases the underlying link.
	Close() error
}

// Settings carries the serial line parameters and dial behavior shared by
// both transport variants. The zero value is not usable; see DefaultSettings.
type Settings struct {
	// Serial line parameters (serial variant only). The pump ships fixed
	// at 9600 8N1.
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits int

	// ConnectTimeout bounds the TCP dial (socket variant only).
	ConnectTimeout time.Duration

	Logger logger.Logger
}

// Parity selects the serial parity mode.
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// DefaultSettings returns the pump's factory line settings: 9600 baud,
// 8 data bits, no parity, 1 stop bit.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:       9600,
		DataBits:       8,
		Parity:         ParityNone,
		StopBits:       1,
		ConnectTimeout: 3 * time.Second,
		Logger:         logger.GetLogger(),
	}
}

// IsNetworkAddress reports whether address selects the socket variant:
// either a "tcp://host:port" URL or a bare "host:port" pair. Anything else
// is treated as a serial device path.
func IsNetworkAddress(address string) bool {
	if strings.HasPrefix(address, "tcp://") {
		return true
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}

	_, err = strconv.Atoi(port)

	return err == nil
}

// Dial opens a Transport for the given address form: a bare path selects the
// serial variant, a "host:port" pair or "tcp://host:port" URL selects the
// socket variant.
func Dial(address string, settings Settings) (Transport, error) {
	if address == "" {
		return nil, errors.New("transport: empty address")
	}

	if settings.Logger == nil {
		settings.Logger = logger.GetLogger()
	}

	if IsNetworkAddress(address) {
		hostPort := strings.TrimPrefix(address, "tcp://")

		conn, err := net.DialTimeout("tcp", hostPort, settings.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", hostPort, err)
		}

		return NewSocket(conn), nil
	}

	return openSerial(address, settings)
}

// isLineTerminated reports whether buf holds a complete response line.
func isLineTerminated(buf []byte) bool {
	n := len(buf)
	if n == 0 {
		return false
	}

	if buf[n-1] == ackByte {
		return true
	}

	return n >= 2 && string(buf[n-2:]) == lineEnd
}
