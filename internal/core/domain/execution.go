package domain

import (
	"slices"
	"time"
)

// ExecutionKind selects how a compilation is dispatched.
type ExecutionKind string

const (
	// ExecutionInProcess runs the compiler in the calling goroutine.
	ExecutionInProcess ExecutionKind = "in-process"
	// ExecutionWorker dispatches the compilation to a long-lived worker process.
	ExecutionWorker ExecutionKind = "worker"
)

// DefaultShutdownDelay is how long an idle worker lingers when none is configured.
const DefaultShutdownDelay = 30 * time.Second

// ExecutionMode describes how compilations are dispatched. It affects only the
// transport, never the logical contract of a compilation.
type ExecutionMode struct {
	Kind ExecutionKind
	// Flags are passed to the worker process on spawn.
	Flags []string
	// ShutdownDelay controls how long an idle worker lingers before terminating.
	ShutdownDelay time.Duration
	// WorkDir holds the worker socket, PID file and log.
	WorkDir string
}

// InProcess returns the in-process execution mode.
func InProcess() ExecutionMode {
	return ExecutionMode{Kind: ExecutionInProcess}
}

// Worker returns the worker execution mode.
func Worker(flags []string, shutdownDelay time.Duration, workDir string) ExecutionMode {
	if shutdownDelay <= 0 {
		shutdownDelay = DefaultShutdownDelay
	}
	return ExecutionMode{
		Kind:          ExecutionWorker,
		Flags:         slices.Clone(flags),
		ShutdownDelay: shutdownDelay,
		WorkDir:       workDir,
	}
}

// IsWorker reports whether compilations are dispatched to a worker process.
func (m ExecutionMode) IsWorker() bool {
	return m.Kind == ExecutionWorker
}

// String returns the execution kind, defaulting to in-process.
func (m ExecutionMode) String() string {
	if m.Kind == "" {
		return string(ExecutionInProcess)
	}
	return string(m.Kind)
}
