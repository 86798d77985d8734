package ports

import (
	"context"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks

// WorkerStatus represents the current state of a worker process.
type WorkerStatus struct {
	Running       bool
	PID           int
	Uptime        time.Duration
	LastActivity  time.Time
	IdleRemaining time.Duration
	InFlight      int
}

// WorkerCompileRequest is a unit of work dispatched to a worker.
type WorkerCompileRequest struct {
	// Artifacts locate the toolchain the worker must compile with.
	Artifacts []string
	Unit      *domain.UnitOfWork
	// Barrier optionally names a rendezvous file the worker waits on before its checkpoint.
	Barrier string
}

// WorkerCompileResult is the worker's answer to a compile request.
type WorkerCompileResult struct {
	Code        domain.ResultCode
	Cancelled   bool
	Diagnostics []domain.Diagnostic
	Error       string
}

// WorkerClient defines the interface for communicating with a worker.
type WorkerClient interface {
	// Ping checks if the worker is alive and resets its inactivity timer.
	Ping(ctx context.Context) error

	// Status returns the current worker status.
	Status(ctx context.Context) (*WorkerStatus, error)

	// Compile runs a unit of work on the worker and blocks until it finishes.
	Compile(ctx context.Context, req *WorkerCompileRequest) (*WorkerCompileResult, error)

	// Cancel requests cancellation of a unit of work. It returns once the
	// worker has recorded the request, even if the unit has not arrived yet.
	Cancel(ctx context.Context, unitID string) error

	// Shutdown requests a graceful worker shutdown.
	Shutdown(ctx context.Context) error

	// Close releases client resources.
	Close() error
}

// WorkerConnector manages worker processes from the orchestrator's perspective.
type WorkerConnector interface {
	// Connect returns a client to the worker of the mode, spawning it if necessary.
	Connect(ctx context.Context, mode domain.ExecutionMode) (WorkerClient, error)

	// IsRunning checks if a worker is serving in the given working directory.
	IsRunning(workDir string) bool

	// Spawn starts a new worker process in the background.
	Spawn(ctx context.Context, mode domain.ExecutionMode) error
}
