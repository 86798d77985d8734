// Package resources provides the scoped-resource owner of an orchestration run.
package resources

import (
	"errors"
	"io"
	"sync"

	"go.trai.ch/zerr"
)

type entry struct {
	name    string
	cleanup func() error
}

// Owner collects cleanups registered during a run and runs them exactly once,
// in reverse registration order.
type Owner struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
	done    chan struct{}
	err     error
}

// New creates an empty owner.
func New() *Owner {
	return &Owner{done: make(chan struct{})}
}

// Track registers a cleanup. Tracking on a closed owner runs the cleanup immediately.
func (o *Owner) Track(name string, cleanup func() error) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return wrap(name, cleanup())
	}
	o.entries = append(o.entries, entry{name: name, cleanup: cleanup})
	o.mu.Unlock()
	return nil
}

// TrackCloser registers c.Close as a cleanup.
func (o *Owner) TrackCloser(name string, c io.Closer) error {
	return o.Track(name, c.Close)
}

// Len returns the number of pending cleanups.
func (o *Owner) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Close runs every pending cleanup, last registered first, and joins their errors.
// Later calls wait for the first one to finish and return its result.
func (o *Owner) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return o.err
	}
	o.closed = true
	entries := o.entries
	o.entries = nil
	o.mu.Unlock()

	var errs error
	for i := len(entries) - 1; i >= 0; i-- {
		errs = errors.Join(errs, wrap(entries[i].name, entries[i].cleanup()))
	}

	o.err = errs
	close(o.done)
	return errs
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return zerr.With(zerr.Wrap(err, "cleanup failed"), "resource", name)
}
