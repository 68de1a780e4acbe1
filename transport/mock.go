package transport

import (
	"sync"
	"time"
)

// MockTransport is a scripted, in-memory Transport for tests.
//
// It records every Write in order and serves reads from a byte queue that
// tests fill with PushLine/PushBytes, either up front or from an OnWrite
// hook reacting to what the engine sends. Read errors can be injected with
// QueueReadError.
type MockTransport struct {
	mu     sync.Mutex
	writes []string
	errs   []error

	// OnWrite, when set, is invoked synchronously after each recorded
	// write with the written payload. Tests use it to enqueue canned
	// responses. Set it before handing the transport to an engine.
	OnWrite func(payload string)

	data      chan byte
	closed    chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*MockTransport)(nil)

// NewMock creates an empty MockTransport.
func NewMock() *MockTransport {
	return &MockTransport{
		data:   make(chan byte, 4096),
		closed: make(chan struct{}),
	}
}

// PushLine queues raw bytes for subsequent reads. The caller includes any
// terminator the scripted device would send.
func (m *MockTransport) PushLine(line string) {
	m.PushBytes([]byte(line))
}

// PushBytes queues raw bytes for subsequent reads.
func (m *MockTransport) PushBytes(p []byte) {
	for _, b := range p {
		select {
		case m.data <- b:
		case <-m.closed:
			return
		}
	}
}

// QueueReadError injects an error to be returned by the next read operation.
func (m *MockTransport) QueueReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errs = append(m.errs, err)
}

// Writes returns a snapshot of all payloads written so far, in order.
func (m *MockTransport) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.writes))
	copy(out, m.writes)

	return out
}

func (m *MockTransport) Write(p []byte) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	m.mu.Lock()
	m.writes = append(m.writes, string(p))
	hook := m.OnWrite
	m.mu.Unlock()

	if hook != nil {
		hook(string(p))
	}

	return nil
}

func (m *MockTransport) Read(n int, timeout time.Duration) ([]byte, error) {
	if err := m.takeErr(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, n)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(buf) < n {
		select {
		case b := <-m.data:
			buf = append(buf, b)
		case <-timer.C:
			return buf, ErrTimeout
		case <-m.closed:
			return buf, ErrClosed
		}
	}

	return buf, nil
}

func (m *MockTransport) ReadLine(timeout time.Duration) (string, error) {
	if err := m.takeErr(); err != nil {
		return "", err
	}

	var line []byte

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for !isLineTerminated(line) {
		select {
		case b := <-m.data:
			line = append(line, b)
		case <-timer.C:
			return string(line), ErrTimeout
		case <-m.closed:
			return string(line), ErrClosed
		}
	}

	return string(line), nil
}

func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
	})

	return nil
}

func (m *MockTransport) takeErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.errs) == 0 {
		return nil
	}

	err := m.errs[0]
	m.errs = m.errs[1:]

	return err
}
