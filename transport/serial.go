package transport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/fluidline/regloicc/logger"
)

// serialTransport drives a directly attached RS-232 serial port via
// go.bug.st/serial. Bounded waits are implemented with the port's native
// read timeout, re-armed with the time remaining before every read so a
// multi-read operation honors one overall deadline.
type serialTransport struct {
	port   serial.Port
	logger logger.Logger
}

// NewSerial wraps an already opened serial port. Most callers use Dial with
// a device path instead; this constructor exists for injecting fake ports
// in tests and for pre-configured ports.
func NewSerial(port serial.Port, l logger.Logger) Transport {
	if l == nil {
		l = logger.GetLogger()
	}

	return &serialTransport{port: port, logger: l}
}

func openSerial(path string, settings Settings) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: settings.BaudRate,
		DataBits: settings.DataBits,
	}

	switch settings.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("transport: unsupported parity %q", string(settings.Parity))
	}

	switch settings.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("transport: unsupported stop bits %d", settings.StopBits)
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", path, err)
	}

	return NewSerial(port, settings.Logger), nil
}

func (t *serialTransport) Write(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.port.Write(p[written:])
		written += n

		if err != nil {
			return fmt.Errorf("%w: serial write: %w", ErrClosed, err)
		}
	}

	return nil
}

func (t *serialTransport) Read(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	deadline := time.Now().Add(timeout)

	for read < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf[:read], ErrTimeout
		}

		if err := t.port.SetReadTimeout(remaining); err != nil {
			return buf[:read], fmt.Errorf("%w: set read timeout: %w", ErrClosed, err)
		}

		m, err := t.port.Read(buf[read:])
		read += m

		if err != nil {
			return buf[:read], classifySerialErr(err)
		}

		// go.bug.st/serial signals a read timeout with a zero-length read
		// and a nil error.
		if m == 0 {
			return buf[:read], ErrTimeout
		}
	}

	return buf, nil
}

func (t *serialTransport) ReadLine(timeout time.Duration) (string, error) {
	var line []byte

	one := make([]byte, 1)
	deadline := time.Now().Add(timeout)

	for !isLineTerminated(line) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return string(line), ErrTimeout
		}

		if err := t.port.SetReadTimeout(remaining); err != nil {
			return string(line), fmt.Errorf("%w: set read timeout: %w", ErrClosed, err)
		}

		m, err := t.port.Read(one)
		if m > 0 {
			line = append(line, one[0])
		}

		if err != nil {
			return string(line), classifySerialErr(err)
		}

		if m == 0 {
			return string(line), ErrTimeout
		}
	}

	return string(line), nil
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}

func classifySerialErr(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return fmt.Errorf("%w: serial read: %w", ErrClosed, err)
}
