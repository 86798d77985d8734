package domain

import (
	"context"
	"sync"
)

// CancelState is the state of a unit of work's cancellation protocol.
type CancelState int

const (
	// CancelIdle is the initial state: nobody asked for cancellation.
	CancelIdle CancelState = iota
	// CancelRequested means cancel was called but the compiler has not observed it yet.
	CancelRequested
	// CancelHonored means the compiler observed the request and stopped.
	CancelHonored
	// CancelTooLate means the request arrived after the compiler passed its last checkpoint.
	CancelTooLate
)

// String returns the string representation of the state.
func (s CancelState) String() string {
	switch s {
	case CancelIdle:
		return "idle"
	case CancelRequested:
		return "requested"
	case CancelHonored:
		return "honored"
	case CancelTooLate:
		return "too-late"
	default:
		return "unknown"
	}
}

// RemoteCancel forwards a cancellation request to wherever the unit of work is executing.
// It must not return before the remote side has recorded the request.
type RemoteCancel func(ctx context.Context) error

// Cancellation tracks the cancellation state of one unit of work.
//
// Request may be called from any goroutine. Attach and Request are serialized
// so that a request racing a dispatch either prevents the dispatch or reaches
// the remote side.
type Cancellation struct {
	mu        sync.Mutex
	state     CancelState
	requested chan struct{}
	remote    RemoteCancel
}

// NewCancellation returns a token in the Idle state.
func NewCancellation() *Cancellation {
	return &Cancellation{requested: make(chan struct{})}
}

// State returns the current state.
func (c *Cancellation) State() CancelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Requested returns a channel that is closed once cancellation has been requested.
func (c *Cancellation) Requested() <-chan struct{} {
	return c.requested
}

// IsRequested reports whether cancellation has been requested, whatever its terminal state.
func (c *Cancellation) IsRequested() bool {
	select {
	case <-c.requested:
		return true
	default:
		return false
	}
}

// Request moves the token from Idle to Requested and synchronously forwards the
// request to the attached remote hook, if any. Repeated calls are no-ops.
func (c *Cancellation) Request(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CancelIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = CancelRequested
	close(c.requested)
	remote := c.remote
	c.mu.Unlock()

	if remote != nil {
		return remote(ctx)
	}
	return nil
}

// Attach registers the hook used to forward a later request to a remote executor.
// If cancellation was already requested, nothing is attached and
// ErrCompilationCancelled is returned: the unit must not be dispatched.
func (c *Cancellation) Attach(remote RemoteCancel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CancelIdle {
		return ErrCompilationCancelled
	}
	c.remote = remote
	return nil
}

// Detach removes the remote hook once the remote unit has completed.
func (c *Cancellation) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = nil
}

// Checkpoint is called by the executing side at its synchronization points.
// It returns ErrCompilationCancelled, moving the token to Honored, when
// cancellation has been requested.
func (c *Cancellation) Checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case CancelRequested:
		c.state = CancelHonored
		return ErrCompilationCancelled
	case CancelHonored:
		return ErrCompilationCancelled
	default:
		return nil
	}
}

// Honor records that the executing side stopped because of the request.
func (c *Cancellation) Honor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CancelRequested {
		c.state = CancelHonored
	}
}

// Finish is called when the unit of work completes. A request that was never
// observed becomes TooLate. It returns the terminal state.
func (c *Cancellation) Finish() CancelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CancelRequested {
		c.state = CancelTooLate
	}
	c.remote = nil
	return c.state
}
