package worker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	pollInterval    = 100 * time.Millisecond
	maxPollDuration = 5 * time.Second
)

// Connector implements ports.WorkerConnector.
type Connector struct {
	executablePath string
}

var _ ports.WorkerConnector = (*Connector)(nil)

// NewConnector creates a connector that spawns workers from the running executable.
func NewConnector() (*Connector, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine executable path")
	}
	return &Connector{executablePath: exe}, nil
}

// Connect returns a client to a responsive worker, spawning one if necessary.
func (c *Connector) Connect(ctx context.Context, mode domain.ExecutionMode) (ports.WorkerClient, error) {
	client, err := Dial(mode.WorkDir)
	if err == nil {
		if pingErr := client.Ping(ctx); pingErr == nil {
			return client, nil
		}
		_ = client.Close()
	}

	if spawnErr := c.Spawn(ctx, mode); spawnErr != nil {
		return nil, spawnErr
	}

	client, err = Dial(mode.WorkDir)
	if err != nil {
		return nil, zerr.Wrap(err, "worker client creation failed")
	}
	if pingErr := client.Ping(ctx); pingErr != nil {
		_ = client.Close()
		return nil, zerr.Wrap(pingErr, domain.ErrWorkerUnavailable.Error())
	}
	return client, nil
}

// IsRunning checks if a worker is serving in workDir.
func (c *Connector) IsRunning(workDir string) bool {
	if workDir == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.isRunningWithCtx(ctx, workDir)
}

func (c *Connector) isRunningWithCtx(ctx context.Context, workDir string) bool {
	client, err := Dial(workDir)
	if err != nil {
		return false
	}
	defer func() { _ = client.Close() }()
	return client.Ping(ctx) == nil
}

// Spawn starts a detached worker process for the mode and waits until it responds.
func (c *Connector) Spawn(ctx context.Context, mode domain.ExecutionMode) error {
	if mode.WorkDir == "" {
		return zerr.New("worker directory cannot be empty")
	}
	workDir, err := filepath.Abs(mode.WorkDir)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve worker directory")
	}
	if err := os.MkdirAll(workDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create worker directory")
	}

	logPath := domain.WorkerLogPath(workDir)
	//nolint:gosec // logPath is the worker directory plus a fixed name
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.PrivateFilePerm)
	if err != nil {
		return zerr.Wrap(err, "failed to open worker log")
	}

	//nolint:gosec // the executable is kiln itself and the flags come from the build configuration
	cmd := exec.Command(c.executablePath, SpawnArgs(workDir, mode)...)
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return zerr.Wrap(err, domain.ErrWorkerSpawnFailed.Error())
	}

	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
	}()

	return c.waitForStartup(ctx, workDir)
}

// SpawnArgs returns the command line of a worker process for the mode.
func SpawnArgs(workDir string, mode domain.ExecutionMode) []string {
	args := []string{
		"worker", "serve",
		"--work-dir", workDir,
		"--shutdown-delay", mode.ShutdownDelay.String(),
	}
	return append(args, mode.Flags...)
}

func (c *Connector) waitForStartup(ctx context.Context, workDir string) error {
	start := time.Now()
	for time.Since(start) < maxPollDuration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if c.isRunningWithCtx(ctx, workDir) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return zerr.With(domain.ErrWorkerUnavailable, "work_dir", workDir)
}
