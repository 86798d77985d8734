// Package cancellation coordinates cancellation requests for module compilations.
package cancellation

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Coordinator hands out one cancellation token per module and cancels them on request.
//
// Cancel is safe to call from any goroutine while a build blocks on the
// token's compilation.
type Coordinator struct {
	caps    domain.Capabilities
	version string
	metrics ports.Metrics

	mu     sync.Mutex
	tokens map[string]*domain.Cancellation
}

// NewCoordinator creates a coordinator for compilations issued through tc.
func NewCoordinator(tc ports.Toolchain, metrics ports.Metrics) *Coordinator {
	return &Coordinator{
		caps:    tc.Capabilities(),
		version: tc.Version().String(),
		metrics: metrics,
		tokens:  make(map[string]*domain.Cancellation),
	}
}

// Supported reports whether the toolchain supports cooperative cancellation.
func (c *Coordinator) Supported() bool {
	return c.caps.Cancellation
}

// Token returns the token of a module, creating an Idle one if needed.
func (c *Coordinator) Token(module string) *domain.Cancellation {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[module]
	if !ok {
		t = domain.NewCancellation()
		c.tokens[module] = t
	}
	return t
}

// Cancel requests cancellation of a module's compilation. A module that has not
// been dispatched yet is pre-cancelled and will never start.
//
// It fails with ErrCancellationUnsupported when the toolchain predates the
// capability. Otherwise it does not return before a worker executing the
// compilation has recorded the request.
func (c *Coordinator) Cancel(ctx context.Context, module string) error {
	if err := c.checkSupported(); err != nil {
		return zerr.With(err, "module", module)
	}
	return c.Token(module).Request(ctx)
}

// CancelToken requests cancellation of an individual token.
func (c *Coordinator) CancelToken(ctx context.Context, token *domain.Cancellation) error {
	if err := c.checkSupported(); err != nil {
		return err
	}
	return token.Request(ctx)
}

// CancelAll requests cancellation of every known token.
func (c *Coordinator) CancelAll(ctx context.Context) error {
	if err := c.checkSupported(); err != nil {
		return err
	}
	c.mu.Lock()
	names := slices.Sorted(maps.Keys(c.tokens))
	tokens := make([]*domain.Cancellation, len(names))
	for i, name := range names {
		tokens[i] = c.tokens[name]
	}
	c.mu.Unlock()

	var errs error
	for i, t := range tokens {
		if err := t.Request(ctx); err != nil {
			errs = errors.Join(errs, zerr.With(err, "module", names[i]))
		}
	}
	return errs
}

// Release forgets the token of a finished module and records its terminal
// state if cancellation had been requested.
func (c *Coordinator) Release(module string) domain.CancelState {
	c.mu.Lock()
	t, ok := c.tokens[module]
	delete(c.tokens, module)
	c.mu.Unlock()
	if !ok {
		return domain.CancelIdle
	}

	state := t.Finish()
	if state != domain.CancelIdle && c.metrics != nil {
		c.metrics.RecordCancellation(state)
	}
	return state
}

func (c *Coordinator) checkSupported() error {
	if c.caps.Cancellation {
		return nil
	}
	return zerr.With(zerr.With(domain.ErrCancellationUnsupported,
		"minimum_version", domain.MinCancellationVersion),
		"toolchain_version", c.version)
}
