package infra

import (
	"testing"
)

func TestMetrics_RecordFrame(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame(1000)
	m.RecordFrame(2000)
	m.RecordFrame(3000)

	snap := m.Snapshot()

	if snap.FramesReceived != 3 {
		t.Errorf("Expected 3 frames, got %d", snap.FramesReceived)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordDecodeError()
	m.RecordDiffDropped()
	m.RecordDiffDropped()
	m.RecordTradeApplied()
	m.RecordReportEmitted()

	snap := m.Snapshot()
	if snap.DecodeErrors != 1 {
		t.Errorf("Expected 1 decode error, got %d", snap.DecodeErrors)
	}
	if snap.DiffsDropped != 2 {
		t.Errorf("Expected 2 dropped diffs, got %d", snap.DiffsDropped)
	}
	if snap.TradesApplied != 1 {
		t.Errorf("Expected 1 applied trade, got %d", snap.TradesApplied)
	}
	if snap.ReportsEmitted != 1 {
		t.Errorf("Expected 1 emitted report, got %d", snap.ReportsEmitted)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame(1000)
	m.RecordDecodeError()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.FramesReceived != 0 {
		t.Error("Expected 0 frames after reset")
	}
	if snap.DecodeErrors != 0 {
		t.Error("Expected 0 decode errors after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}
