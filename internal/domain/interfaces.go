package domain

import (
	"context"
)

// StreamWorker defines the interface for venue WebSocket connectors
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// AccountProvider supplies the operator's account index, resolved
// out-of-band (cached from the venue's authenticated REST traffic).
// ok is false until the index has been observed at least once.
type AccountProvider interface {
	AccountIndex() (int64, bool)
}

// ReportStore persists emitted execution reports (history collaborator).
type ReportStore interface {
	SaveReport(report *ExecutionReport) error
	RecentReports(limit int) ([]ExecutionReport, error)
}

// Notifier delivers an execution report to the rendering side. The core
// has no opinion on how it is displayed.
type Notifier interface {
	Notify(report *ExecutionReport) error
}
