package ports

import "go.trai.ch/kiln/internal/core/domain"

// DiagnosticRecorder is a sink that keeps what it received.
type DiagnosticRecorder interface {
	DiagnosticSink
	// Entries returns the received diagnostics in emission order.
	Entries() []domain.Diagnostic
}

// DiagnosticRecorderFactory creates the recorder of one module compilation.
type DiagnosticRecorderFactory func(module string) DiagnosticRecorder
