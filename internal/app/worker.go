package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/kiln/internal/adapters/refc"
	"go.trai.ch/kiln/internal/adapters/worker"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// WorkerOptions configuration for the worker commands.
type WorkerOptions struct {
	// WorkDir is the worker directory. Empty resolves it from the configuration.
	WorkDir string
	// ShutdownDelay is the inactivity timeout of a served worker.
	ShutdownDelay time.Duration
}

// ServeWorker runs a worker in the current process until it is shut down,
// idles out or ctx is cancelled.
func (a *App) ServeWorker(ctx context.Context, opts WorkerOptions) error {
	workDir, err := a.workerDir(opts.WorkDir)
	if err != nil {
		return err
	}
	delay := opts.ShutdownDelay
	if delay <= 0 {
		delay = domain.DefaultShutdownDelay
	}

	a.logger.Info("worker serving in " + workDir)
	srv := worker.NewServer(worker.NewLifecycle(delay), a.toolchains, workDir)
	if err := srv.Serve(ctx); err != nil {
		return zerr.Wrap(err, "worker failed")
	}
	a.logger.Info("worker stopped")
	return nil
}

// WorkerStatus prints the state of the worker.
func (a *App) WorkerStatus(ctx context.Context, opts WorkerOptions) error {
	workDir, err := a.workerDir(opts.WorkDir)
	if err != nil {
		return err
	}
	if !a.connector.IsRunning(workDir) {
		a.printer().WorkerStatus(workDir, nil)
		return nil
	}

	client, err := worker.Dial(workDir)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	status, err := client.Status(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to query worker status")
	}
	a.printer().WorkerStatus(workDir, status)
	return nil
}

// StopWorker asks a running worker to shut down.
func (a *App) StopWorker(ctx context.Context, opts WorkerOptions) error {
	workDir, err := a.workerDir(opts.WorkDir)
	if err != nil {
		return err
	}
	if !a.connector.IsRunning(workDir) {
		a.logger.Info("no worker is running in " + workDir)
		return nil
	}

	client, err := worker.Dial(workDir)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Shutdown(ctx); err != nil {
		return zerr.Wrap(err, "failed to stop worker")
	}
	a.logger.Info("worker stopped")
	return nil
}

// workerDir resolves an explicit directory, then the configured worker directory,
// then the default below the working directory.
func (a *App) workerDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	scenario, err := a.configLoader.Load(".")
	switch {
	case err == nil && scenario.Mode.IsWorker() && scenario.Mode.WorkDir != "":
		return scenario.Mode.WorkDir, nil
	case err == nil:
		return domain.DefaultWorkerDir(scenario.Graph.Root()), nil
	}

	cwd, cwdErr := os.Getwd()
	if cwdErr != nil {
		return "", zerr.Wrap(cwdErr, "failed to determine working directory")
	}
	a.logger.Debug("no configuration found, using the default worker directory")
	return domain.DefaultWorkerDir(cwd), nil
}

// InstallToolchain writes a reference compiler artifact of the given version
// into dir and returns its location.
func (a *App) InstallToolchain(_ context.Context, dir, version string) (string, error) {
	location, err := refc.Install(dir, version)
	if err != nil {
		return "", err
	}
	a.logger.Info("installed refc " + version + " at " + location)
	return location, nil
}
