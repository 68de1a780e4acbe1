package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/fluidline/regloicc/internal/pool"
	"github.com/fluidline/regloicc/logger"
	"github.com/fluidline/regloicc/protocol"
	"github.com/fluidline/regloicc/transport"
)

// flushSize is the number of stray bytes drained before a command is
// written. Matches the longest burst of queued status lines observed on
// hardware.
const flushSize = 100

// Sentinel errors for the link engine.
var (
	// ErrClosed indicates the engine is closed; in-flight and queued
	// exchanges resolve with it.
	ErrClosed = errors.New("link: engine closed")

	// ErrTimeout indicates the pump did not respond within the reply
	// timeout. The worker survives and serves the next exchange.
	ErrTimeout = errors.New("link: device did not respond")

	// ErrProtocol indicates a response that matches no recognized shape.
	ErrProtocol = errors.New("link: malformed response")

	// ErrSendTimeout indicates the exchange queue stayed full for the
	// whole send timeout.
	ErrSendTimeout = errors.New("link: send queue full")
)

// NotificationHandler receives decoded unsolicited channel status changes.
// Handlers run on the engine worker and must not block.
type NotificationHandler func(channel int, running bool)

// exchange is one pending command/response correlation. The protocol has no
// request IDs, so exactly one exchange is in flight at a time and responses
// are matched by position alone.
type exchange struct {
	payload   string
	replyChan chan exchangeResult
}

type exchangeResult struct {
	line string
	err  error
}

// Engine owns a single physical pump link. It serializes concurrent caller
// requests into one ordered stream, correlates each with its response, and
// dispatches unsolicited status lines to the running-state cache and any
// registered handlers.
type Engine struct {
	cfg    *Config
	logger logger.Logger

	// tr is used exclusively by the worker goroutine.
	tr transport.Transport

	reqChan chan *exchange

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	running  *xsync.MapOf[int, bool]
	channels atomic.Value // []int

	handlerMu sync.RWMutex
	handlers  []NotificationHandler

	metrics EngineMetrics
}

// Open dials the pump at the given address and starts the engine worker.
// The address selects the transport variant: a bare path is a serial
// device, "host:port" or "tcp://host:port" is a serial gateway.
func Open(address string, opts ...Option) (*Engine, error) {
	cfg, err := NewConfig(address, opts...)
	if err != nil {
		return nil, err
	}

	tr, err := transport.Dial(address, cfg.settings)
	if err != nil {
		return nil, err
	}

	return start(tr, cfg)
}

// OpenTransport starts an engine on an already established transport. Used
// for pre-configured links and for test doubles.
func OpenTransport(tr transport.Transport, opts ...Option) (*Engine, error) {
	if tr == nil {
		return nil, errors.New("link: transport is nil")
	}

	cfg, err := NewConfig("", opts...)
	if err != nil {
		return nil, err
	}

	return start(tr, cfg)
}

func start(tr transport.Transport, cfg *Config) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		logger:  cfg.logger,
		tr:      tr,
		reqChan: make(chan *exchange, cfg.queueSize),
		running: xsync.NewMapOf[int, bool](),
	}
	e.channels.Store([]int(nil))
	e.ctx, e.cancel = context.WithCancel(context.Background())

	e.wg.Add(1)
	go e.run()

	return e, nil
}

// Close stops the worker, resolves in-flight and queued exchanges with
// ErrClosed, joins the worker, and releases the transport.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.logger.Debug("link: closing engine")

	e.cancel()
	e.wg.Wait()

	return e.tr.Close()
}

// Command sends a command payload and reports whether the pump acknowledged
// it (response "*"). Commands are never retried by the engine: retrying a
// side-effecting command such as "start" is a caller policy decision.
func (e *Engine) Command(payload string) (bool, error) {
	line, err := e.request(payload)
	if err != nil {
		return false, err
	}

	if line != string(protocol.AckChar) {
		e.logger.Debug("link: command not acknowledged", "command", payload, "response", line)

		return false, nil
	}

	return true, nil
}

// Query sends a query payload and returns the pump's response with framing
// stripped.
func (e *Engine) Query(payload string) (string, error) {
	return e.request(payload)
}

// RegisterNotificationHandler registers fn to be invoked for each decoded
// channel status notification. Handlers run on the engine worker and must
// not block.
func (e *Engine) RegisterNotificationHandler(fn NotificationHandler) {
	if fn == nil {
		return
	}

	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()

	e.handlers = append(e.handlers, fn)
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *EngineMetrics {
	return &e.metrics
}

// request enqueues one exchange and blocks until the worker delivers the
// response line or a terminal error for it.
func (e *Engine) request(payload string) (string, error) {
	if e.closed.Load() {
		return "", ErrClosed
	}

	ex := &exchange{
		payload:   payload,
		replyChan: make(chan exchangeResult, 1),
	}

	timer := pool.GetTimer(e.cfg.sendTimeout)
	defer pool.PutTimer(timer)

	select {
	case e.reqChan <- ex:
	case <-e.ctx.Done():
		return "", ErrClosed
	case <-timer.C:
		return "", ErrSendTimeout
	}

	select {
	case res := <-ex.replyChan:
		return res.line, res.err
	case <-e.ctx.Done():
		return "", ErrClosed
	}
}

// --- Worker ---

func (e *Engine) run() {
	defer e.wg.Done()
	defer e.failPending()
	defer e.cancel()

	e.logger.Debug("link: worker started")

	for e.loopIteration() {
	}

	e.logger.Debug("link: worker terminated")
}

// loopIteration performs a single iteration of the protocol loop: serve one
// queued exchange if any, otherwise poll for unsolicited traffic.
func (e *Engine) loopIteration() bool {
	select {
	case <-e.ctx.Done():
		return false

	case ex := <-e.reqChan:
		if ex == nil {
			return true
		}

		return e.serveExchange(ex)

	default:
		// Nothing queued, poll for notifications.
	}

	return e.pollForNotification()
}

// serveExchange performs one synchronous exchange: drain, write/read, and
// re-enable event messages. It returns false when the transport is dead and
// the worker must stop.
func (e *Engine) serveExchange(ex *exchange) bool {
	// Drain: suppress asynchronous status lines, which the pump can emit
	// mid-response and corrupt framing, then flush anything already
	// buffered. The flush is required; omitting it reintroduces framing
	// corruption under load.
	if err := e.writeLine(protocol.DisableEvents); err != nil {
		ex.replyChan <- exchangeResult{err: err}

		return false
	}

	if err := e.readDirectiveAck(protocol.DisableEvents); err != nil {
		ex.replyChan <- exchangeResult{err: err}

		return false
	}

	if flushed, err := e.tr.Read(flushSize, e.cfg.pollTimeout); len(flushed) > 0 {
		e.logger.Debug("link: flushed stray bytes before exchange", "bytes", fmt.Sprintf("%q", flushed))
		e.metrics.addFlushedBytes(len(flushed))

		if err != nil && !errors.Is(err, transport.ErrTimeout) {
			ex.replyChan <- exchangeResult{err: fmt.Errorf("link: flush: %w", err)}

			return false
		}
	}

	// Exchange: write the framed command and wait for exactly one
	// response line.
	if err := e.writeLine(ex.payload); err != nil {
		ex.replyChan <- exchangeResult{err: err}

		return false
	}

	line, err := e.readResponse()
	switch {
	case err == nil:
		e.metrics.incExchangeCount()
		ex.replyChan <- exchangeResult{line: line}

	case errors.Is(err, transport.ErrClosed):
		e.metrics.incExchangeErrCount()
		ex.replyChan <- exchangeResult{err: fmt.Errorf("link: exchange: %w", err)}

		return false

	default:
		// Timeout or protocol error: surfaced to this caller only, the
		// worker stays alive for the next exchange.
		e.metrics.incExchangeErrCount()
		ex.replyChan <- exchangeResult{err: err}
	}

	// Re-enable asynchronous status lines.
	if err := e.writeLine(protocol.EnableEvents); err != nil {
		e.logger.Error("link: failed to re-enable event messages", "error", err)

		return false
	}

	if err := e.readDirectiveAck(protocol.EnableEvents); err != nil {
		e.logger.Error("link: failed to re-enable event messages", "error", err)

		return false
	}

	return true
}

// writeLine frames and writes one ASCII payload.
func (e *Engine) writeLine(payload string) error {
	err := e.tr.Write(append([]byte(payload), protocol.Terminator))
	if err != nil {
		return fmt.Errorf("link: write %q: %w", payload, err)
	}

	return nil
}

// readDirectiveAck consumes the single-byte acknowledgment of an event
// messaging directive. A missing ack is logged but tolerated: some firmware
// revisions stay silent when the directive does not change state.
func (e *Engine) readDirectiveAck(directive string) error {
	buf, err := e.tr.Read(1, e.cfg.replyTimeout)
	if err != nil && !errors.Is(err, transport.ErrTimeout) {
		return fmt.Errorf("link: %s ack: %w", directive, err)
	}

	if len(buf) == 0 {
		e.logger.Debug("link: no ack for directive", "directive", directive)
	}

	return nil
}

// readResponse reads the one response line of the current exchange. Status
// lines racing into the drain window are skipped: they cannot be attributed
// reliably, so they are dropped rather than delivered as the response.
func (e *Engine) readResponse() (string, error) {
	deadline := time.Now().Add(e.cfg.replyTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimeout
		}

		line, err := e.tr.ReadLine(remaining)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				if len(line) > 0 {
					return "", fmt.Errorf("%w: unterminated response %q", ErrProtocol, line)
				}

				return "", ErrTimeout
			}

			return "", err
		}

		if n, ok := protocol.ParseNotification(line); ok {
			e.logger.Debug("link: status line inside exchange window, dropping",
				"channel", n.Channel, "running", n.Running)

			continue
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			return "", fmt.Errorf("%w: empty response line", ErrProtocol)
		}

		return trimmed, nil
	}
}

// pollForNotification reads one line with a short bounded wait while the
// loop is idle, dispatching notifications and discarding anything else.
func (e *Engine) pollForNotification() bool {
	line, err := e.tr.ReadLine(e.cfg.pollTimeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			if len(line) > 0 {
				e.logger.Debug("link: discarding partial line", "line", line)
				e.metrics.incDiscardedLineCount()
			}

			return true
		}

		e.logger.Error("link: transport failed while idle", "error", err)

		return false
	}

	n, ok := protocol.ParseNotification(line)
	if !ok {
		e.logger.Debug("link: discarding unrecognized line", "line", line)
		e.metrics.incDiscardedLineCount()

		return true
	}

	e.metrics.incNotificationCount()
	e.applyNotification(n)

	return true
}

// applyNotification updates the running-state cache and fans the event out
// to registered handlers. Runs on the worker only.
func (e *Engine) applyNotification(n protocol.Notification) {
	e.running.Store(n.Channel, n.Running)

	e.handlerMu.RLock()
	handlers := e.handlers
	e.handlerMu.RUnlock()

	for _, fn := range handlers {
		fn(n.Channel, n.Running)
	}
}

// failPending resolves all queued exchanges with ErrClosed on worker exit.
func (e *Engine) failPending() {
	for {
		select {
		case ex := <-e.reqChan:
			if ex != nil {
				ex.replyChan <- exchangeResult{err: ErrClosed}
			}
		default:
			return
		}
	}
}
