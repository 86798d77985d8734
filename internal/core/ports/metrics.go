package ports

import (
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks

// Metrics records build statistics.
type Metrics interface {
	// RecordCompilation records one module compilation.
	RecordCompilation(module string, mode domain.ExecutionKind, outcome domain.Outcome, duration time.Duration)
	// RecordCancellation records the terminal state of a cancellation request.
	RecordCancellation(state domain.CancelState)
	// RecordBuild records a whole orchestrated build.
	RecordBuild(kind string, succeeded bool, duration time.Duration)
}
