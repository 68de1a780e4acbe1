package link

import "sync/atomic"

// EngineMetrics carries the engine's traffic counters. All counters are
// monotonic and safe for concurrent access.
type EngineMetrics struct {
	exchangeCount     atomic.Uint64
	exchangeErrCount  atomic.Uint64
	notificationCount atomic.Uint64
	discardedLines    atomic.Uint64
	flushedBytes      atomic.Uint64
}

// ExchangeCount returns the number of completed command/response exchanges.
func (m *EngineMetrics) ExchangeCount() uint64 { return m.exchangeCount.Load() }

// ExchangeErrCount returns the number of exchanges that resolved with an
// error.
func (m *EngineMetrics) ExchangeErrCount() uint64 { return m.exchangeErrCount.Load() }

// NotificationCount returns the number of decoded channel status
// notifications.
func (m *EngineMetrics) NotificationCount() uint64 { return m.notificationCount.Load() }

// DiscardedLineCount returns the number of unrecognized or partial lines
// dropped while idle.
func (m *EngineMetrics) DiscardedLineCount() uint64 { return m.discardedLines.Load() }

// FlushedByteCount returns the number of stray bytes flushed before
// exchanges.
func (m *EngineMetrics) FlushedByteCount() uint64 { return m.flushedBytes.Load() }

func (m *EngineMetrics) incExchangeCount()      { m.exchangeCount.Add(1) }
func (m *EngineMetrics) incExchangeErrCount()   { m.exchangeErrCount.Add(1) }
func (m *EngineMetrics) incNotificationCount()  { m.notificationCount.Add(1) }
func (m *EngineMetrics) incDiscardedLineCount() { m.discardedLines.Add(1) }
func (m *EngineMetrics) addFlushedBytes(n int)  { m.flushedBytes.Add(uint64(n)) }
