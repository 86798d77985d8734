// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/cancellation"
	"go.trai.ch/kiln/internal/engine/driver"
	"go.trai.ch/kiln/internal/engine/orchestrator"
	"go.trai.ch/kiln/internal/engine/resources"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/report"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	toolchains   ports.ToolchainLoader
	connector    ports.WorkerConnector
	store        ports.BuildRecordStore
	hasher       ports.OutputHasher
	tracer       ports.Tracer
	recorder     *metrics.Recorder
	logger       ports.Logger
	sinks        ports.DiagnosticRecorderFactory
	out          io.Writer
	verbose      bool
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	toolchains ports.ToolchainLoader,
	connector ports.WorkerConnector,
	store ports.BuildRecordStore,
	hasher ports.OutputHasher,
	tracer ports.Tracer,
	recorder *metrics.Recorder,
	log ports.Logger,
	sinks ports.DiagnosticRecorderFactory,
) *App {
	return &App{
		configLoader: loader,
		toolchains:   toolchains,
		connector:    connector,
		store:        store,
		hasher:       hasher,
		tracer:       tracer,
		recorder:     recorder,
		logger:       log,
		sinks:        sinks,
		out:          os.Stdout,
	}
}

// WithOutput redirects reports to w.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// levelSetter is implemented by loggers whose verbosity can be changed at runtime.
type levelSetter interface {
	SetLevel(level domain.LogLevel)
	SetJSON(enable bool)
}

// ConfigureLogging applies the global logging flags.
func (a *App) ConfigureLogging(level string, json bool) {
	a.verbose = domain.ParseLogLevel(level) <= domain.LogLevelDebug
	if l, ok := a.logger.(levelSetter); ok {
		l.SetLevel(domain.ParseLogLevel(level))
		l.SetJSON(json)
	}
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	// Modules restricts the build to the named modules. Empty builds everything.
	Modules []string
	// Changed names the module the explicit change descriptor applies to in a full build.
	Changed string
	// Known and Removed assert the exact delta of the changed modules.
	Known   []string
	Removed []string
	// Unknown forces a from-scratch comparison for the changed modules.
	Unknown bool
	// Cancel names modules whose compilation is cancelled before it is dispatched.
	Cancel []string
	// Mode overrides the configured execution mode.
	Mode string
	// Artifacts override the configured toolchain artifacts.
	Artifacts []string
}

// change builds the explicit change descriptor. Known and removed paths are
// resolved against the working directory, since modules list absolute sources.
func (o BuildOptions) change() (domain.ChangeDescriptor, bool, error) {
	switch {
	case o.Unknown:
		return domain.UnknownChanges(), true, nil
	case len(o.Known) > 0 || len(o.Removed) > 0:
		known, err := absPaths(o.Known)
		if err != nil {
			return domain.ChangeDescriptor{}, true, err
		}
		removed, err := absPaths(o.Removed)
		if err != nil {
			return domain.ChangeDescriptor{}, true, err
		}
		return domain.KnownChanges(known, removed), true, nil
	default:
		return domain.ToBeCalculated(), false, nil
	}
}

func absPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", p)
		}
		out = append(out, abs)
	}
	return out, nil
}

// Build loads the configuration and the toolchain and builds the selected modules.
// It returns ErrBuildExecutionFailed when any module did not succeed.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	// 1. Load the scenario
	scenario, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	change, explicit, err := opts.change()
	if err != nil {
		return err
	}
	if explicit && opts.Changed == "" && len(opts.Modules) == 0 {
		return domain.ErrChangeWithoutModule
	}
	mode, err := overrideMode(scenario, opts.Mode)
	if err != nil {
		return err
	}
	artifacts := scenario.Artifacts
	if len(opts.Artifacts) > 0 {
		// A spawned worker runs in its own directory.
		if artifacts, err = absPaths(opts.Artifacts); err != nil {
			return err
		}
	}

	// 2. Scope every resource of the build to one owner
	owner := resources.New()
	defer func() {
		if cerr := owner.Close(); cerr != nil {
			a.logger.Error(cerr)
		}
	}()
	if scenario.MetricsTextfile != "" {
		_ = owner.Track("metrics", func() error {
			return a.recorder.WriteTextfile(scenario.MetricsTextfile)
		})
	}
	shutdown := telemetry.Setup(a.logger)
	_ = owner.Track("telemetry", func() error {
		return shutdown(context.WithoutCancel(ctx))
	})

	// 3. Load the toolchain
	tc, err := a.toolchains.Load(ctx, artifacts)
	if err != nil {
		return zerr.Wrap(err, "failed to load toolchain")
	}
	a.logger.Debug(fmt.Sprintf("loaded %s %s from %v", tc.Implementation(), tc.Version(), tc.Artifacts()))

	drv := driver.New(tc, a.connector, a.tracer, a.recorder, a.sinks)
	_ = owner.TrackCloser("driver", drv)

	coordinator := cancellation.NewCoordinator(tc, a.recorder)
	for _, name := range opts.Cancel {
		if err := coordinator.Cancel(ctx, name); err != nil {
			return err
		}
	}
	// An interrupted build cancels the compilation in flight.
	stop := context.AfterFunc(ctx, func() {
		if err := coordinator.CancelAll(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn(err.Error())
		}
	})
	_ = owner.Track("interrupt", func() error {
		stop()
		return nil
	})

	// 4. Run the orchestrator
	orch := orchestrator.New(drv, coordinator, a.store, a.hasher, a.tracer, a.recorder, a.logger)
	buildOpts := orchestrator.Options{Mode: mode}

	var rep *domain.BuildReport
	if len(opts.Modules) > 0 {
		rep, err = orch.BuildSubset(ctx, scenario.Graph, opts.Modules, change, buildOpts)
	} else {
		var changed *domain.ModuleChange
		if opts.Changed != "" {
			changed = &domain.ModuleChange{Module: opts.Changed, Change: change}
		}
		rep, err = orch.BuildAll(ctx, scenario.Graph, changed, buildOpts)
	}

	if rep != nil {
		a.printer().Report(rep)
	}
	if err != nil {
		return err
	}
	if !rep.Succeeded() {
		return domain.ErrBuildExecutionFailed
	}
	return nil
}

func overrideMode(scenario *domain.Scenario, name string) (domain.ExecutionMode, error) {
	switch domain.ExecutionKind(name) {
	case "":
		return scenario.Mode, nil
	case domain.ExecutionInProcess:
		return domain.InProcess(), nil
	case domain.ExecutionWorker:
		if scenario.Mode.IsWorker() {
			return scenario.Mode, nil
		}
		return domain.Worker(nil, 0, domain.DefaultWorkerDir(scenario.Graph.Root())), nil
	default:
		return domain.ExecutionMode{}, zerr.With(domain.ErrInvalidExecutionMode, "mode", name)
	}
}

// Order prints the build order of the configured modules.
func (a *App) Order(_ context.Context) error {
	scenario, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	order, err := scenario.Graph.BuildOrder()
	if err != nil {
		return err
	}
	a.printer().Order(order)
	return nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Outputs bool
	Records bool
}

// Clean removes module outputs and build records based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	scenario, err := a.configLoader.Load(".")
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	root := scenario.Graph.Root()

	var errs error

	// Helper to remove a directory and log the action
	remove := func(path string, name string) {
		a.logger.Debug(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Outputs {
		for m := range scenario.Graph.Modules() {
			remove(m.OutputDir(), fmt.Sprintf("outputs of %s", m.Name()))
			remove(m.IncrementalDir(), fmt.Sprintf("incremental state of %s", m.Name()))
		}
	}

	if options.Records {
		a.logger.Debug("removing build records...")
		if err := a.store.Clear(root); err != nil {
			errs = errors.Join(errs, err)
		} else {
			a.logger.Info("removed build records")
		}
	}

	return errs
}

func (a *App) printer() *report.Printer {
	return report.New(a.out, output.ColorProfile()).Verbose(a.verbose)
}
