package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitForFile_UncleanPath(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- waitForFile(ctx, dir+"/.//x.barrier")
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.barrier"), nil, 0o600))
	require.NoError(t, <-done)
}

func TestWaitForFile_AlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.barrier"), nil, 0o600))

	require.NoError(t, waitForFile(context.Background(), dir+"//x.barrier"))
}

func TestWaitForFile_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, waitForFile(ctx, filepath.Join(t.TempDir(), "x.barrier")), context.Canceled)
}
