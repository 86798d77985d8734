package worker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// arrivedSuffix marks the file a worker writes when it reaches a barrier.
const arrivedSuffix = ".arrived"

// Barrier is a file-based rendezvous between a caller and a worker
// compilation. The worker announces its arrival and then blocks until the
// caller releases the barrier.
type Barrier struct {
	path string
}

// NewBarrier creates a barrier located in dir.
func NewBarrier(dir string) Barrier {
	return Barrier{path: filepath.Join(dir, uuid.NewString()+".barrier")}
}

// Path returns the barrier file path.
func (b Barrier) Path() string {
	return b.path
}

// WaitArrival blocks until a worker has reached the barrier.
func (b Barrier) WaitArrival(ctx context.Context) error {
	return waitForFile(ctx, b.path+arrivedSuffix)
}

// Release lets the waiting worker continue.
func (b Barrier) Release() error {
	if err := os.WriteFile(b.path, nil, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error()), "barrier", b.path)
	}
	return nil
}

// await announces arrival at the barrier and waits for its release.
func await(ctx context.Context, path string) error {
	if err := os.WriteFile(path+arrivedSuffix, nil, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error()), "barrier", path)
	}
	return waitForFile(ctx, path)
}

// waitForFile blocks until path exists.
func waitForFile(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error())
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error()), "barrier", path)
	}

	// The file may have appeared before the watch was in place.
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error()), "barrier", path)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return zerr.With(domain.ErrBarrierWaitFailed, "barrier", path)
			}
			if filepath.Clean(event.Name) == path && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return zerr.With(domain.ErrBarrierWaitFailed, "barrier", path)
			}
			return zerr.With(zerr.Wrap(err, domain.ErrBarrierWaitFailed.Error()), "barrier", path)
		}
	}
}
