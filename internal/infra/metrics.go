package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	framesReceived atomic.Uint64
	decodeErrors   atomic.Uint64
	diffsDropped   atomic.Uint64
	tradesApplied  atomic.Uint64
	reportsEmitted atomic.Uint64

	// Latency tracking (event processing)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFrame records one received wire frame with its processing latency.
func (m *Metrics) RecordFrame(latencyNs int64) {
	m.framesReceived.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordDecodeError records a malformed or truncated frame. Never fatal:
// the frame is dropped and the stream continues.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
}

// RecordDiffDropped records a diff discarded because its market never
// received a snapshot.
func (m *Metrics) RecordDiffDropped() {
	m.diffsDropped.Add(1)
}

// RecordTradeApplied records a trade-driven liquidity decrement.
func (m *Metrics) RecordTradeApplied() {
	m.tradesApplied.Add(1)
}

// RecordReportEmitted records an emitted execution report.
func (m *Metrics) RecordReportEmitted() {
	m.reportsEmitted.Add(1)
}

// SetActiveConnections sets the current active connection count.
func (m *Metrics) SetActiveConnections(count int32) {
	m.activeConnections.Store(count)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FramesReceived    uint64
	DecodeErrors      uint64
	DiffsDropped      uint64
	TradesApplied     uint64
	ReportsEmitted    uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		FramesReceived:    m.framesReceived.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		DiffsDropped:      m.diffsDropped.Load(),
		TradesApplied:     m.tradesApplied.Load(),
		ReportsEmitted:    m.reportsEmitted.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.framesReceived.Store(0)
	m.decodeErrors.Store(0)
	m.diffsDropped.Store(0)
	m.tradesApplied.Store(0)
	m.reportsEmitted.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
