// Package orchestrator builds the modules of a graph in dependency order.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/driver"
	"go.trai.ch/zerr"
)

// Compiler compiles a single module.
type Compiler interface {
	Compile(ctx context.Context, req driver.Request) domain.CompilationResult
	Toolchain() ports.Toolchain
}

// Tokens hands out per-module cancellation tokens.
type Tokens interface {
	Token(module string) *domain.Cancellation
	Release(module string) domain.CancelState
}

// Options tune a single build.
type Options struct {
	// Mode is the execution mode of every compilation.
	Mode domain.ExecutionMode
	// Preset entries are placed first on every module's classpath.
	Preset []string
	// Barriers maps module names to rendezvous files for worker compilations.
	Barriers map[string]string
}

// Orchestrator runs builds over a module graph. Modules are compiled one at a
// time in build order.
type Orchestrator struct {
	compiler Compiler
	tokens   Tokens
	store    ports.BuildRecordStore
	hasher   ports.OutputHasher
	tracer   ports.Tracer
	metrics  ports.Metrics
	logger   ports.Logger
}

// New creates an orchestrator. tokens may be nil when builds are never cancelled.
func New(
	compiler Compiler,
	tokens Tokens,
	store ports.BuildRecordStore,
	hasher ports.OutputHasher,
	tracer ports.Tracer,
	metrics ports.Metrics,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		compiler: compiler,
		tokens:   tokens,
		store:    store,
		hasher:   hasher,
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger,
	}
}

// BuildAll builds every module of g in build order. The module named by
// changed gets its explicit change descriptor, every other module
// ToBeCalculated. A failing module does not stop the build.
//
// Graph errors abort the build before anything is compiled. Module failures
// are reported in the returned report.
func (o *Orchestrator) BuildAll(
	ctx context.Context,
	g *domain.ModuleGraph,
	changed *domain.ModuleChange,
	opts Options,
) (*domain.BuildReport, error) {
	order, err := g.BuildOrder()
	if err != nil {
		return nil, err
	}
	if changed != nil {
		if _, ok := g.Module(changed.Module); !ok {
			return nil, zerr.With(domain.ErrUnknownModule, "module", changed.Module)
		}
	}

	changeOf := func(name string) domain.ChangeDescriptor {
		if changed != nil && changed.Module == name {
			return changed.Change
		}
		return domain.ToBeCalculated()
	}
	return o.run(ctx, g, "all", order, changeOf, false, opts)
}

// BuildSubset builds the named modules in dependency order, passing change to
// each of them. It stops at the first module that does not succeed.
func (o *Orchestrator) BuildSubset(
	ctx context.Context,
	g *domain.ModuleGraph,
	names []string,
	change domain.ChangeDescriptor,
	opts Options,
) (*domain.BuildReport, error) {
	if len(names) == 0 {
		return nil, domain.ErrNoModulesSelected
	}
	order, err := g.BuildOrderOf(names)
	if err != nil {
		return nil, err
	}
	changeOf := func(string) domain.ChangeDescriptor { return change }
	return o.run(ctx, g, "subset", order, changeOf, true, opts)
}

func (o *Orchestrator) run(
	ctx context.Context,
	g *domain.ModuleGraph,
	kind string,
	order []string,
	changeOf func(string) domain.ChangeDescriptor,
	failFast bool,
	opts Options,
) (*domain.BuildReport, error) {
	start := time.Now()
	release := g.Seal()
	defer release()

	ctx, span := o.tracer.Start(ctx, "build",
		ports.WithAttribute("kind", kind),
		ports.WithAttribute("modules", order),
	)
	defer span.End()
	o.tracer.EmitPlan(ctx, order)

	report := domain.NewBuildReport()
	var runErr error
	for i, name := range order {
		if err := ctx.Err(); err != nil {
			runErr = zerr.With(zerr.Wrap(err, "build interrupted"), "remaining", order[i:])
			break
		}

		m, _ := g.Module(name)
		res := o.buildModule(ctx, g, m, changeOf(name), opts)
		report.Add(res)

		if failFast && !res.Outcome.IsSuccess() {
			o.logger.Warn(fmt.Sprintf("stopping after %s: %s", name, res.Outcome))
			break
		}
	}

	succeeded := runErr == nil && report.Succeeded()
	span.SetAttribute("succeeded", succeeded)
	if runErr != nil {
		span.RecordError(runErr)
	}
	if o.metrics != nil {
		o.metrics.RecordBuild(kind, succeeded, time.Since(start))
	}
	return report, runErr
}

func (o *Orchestrator) buildModule(
	ctx context.Context,
	g *domain.ModuleGraph,
	m *domain.Module,
	change domain.ChangeDescriptor,
	opts Options,
) domain.ModuleResult {
	start := time.Now()
	name := m.Name()
	root := g.Root()

	if prev, err := o.store.Get(root, name); err != nil {
		o.logger.Warn(fmt.Sprintf("ignoring unreadable build record of %s", name))
	} else if prev != nil && prev.SnapshotPath != m.SnapshotPath() {
		o.logger.Debug(fmt.Sprintf("snapshot of %s moved from %s, expecting a full rebuild", name, prev.SnapshotPath))
	}

	ic := domain.ConfigureIncremental(m, change, domain.DependencySnapshots(m, g))
	req := driver.Request{
		Module:      m,
		Classpath:   domain.AssembleClasspath(m, g, opts.Preset...),
		Incremental: &ic,
		Mode:        opts.Mode,
		Barrier:     opts.Barriers[name],
	}
	if o.tokens != nil {
		req.Cancel = o.tokens.Token(name)
	}

	o.logger.Debug(fmt.Sprintf("compiling %s (%s)", name, change))
	res := o.compiler.Compile(ctx, req)
	if o.tokens != nil {
		o.tokens.Release(name)
	}

	outputHash, err := o.hasher.ComputeOutputHash(m.OutputDir())
	if err != nil {
		o.logger.Error(zerr.With(zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error()), "module", name))
	}

	record := domain.BuildRecord{
		Module:           name,
		Outcome:          res.Outcome,
		SnapshotPath:     m.SnapshotPath(),
		OutputHash:       outputHash,
		ToolchainVersion: o.compiler.Toolchain().Version().String(),
		Revision:         m.Revision(),
		Timestamp:        time.Now(),
	}
	if err := o.store.Put(root, record); err != nil {
		o.logger.Error(zerr.With(err, "module", name))
	}

	o.logger.Info(fmt.Sprintf("%s: %s", name, res.Outcome))
	return domain.ModuleResult{
		Module:      name,
		Outcome:     res.Outcome,
		Diagnostics: res.Diagnostics,
		OutputHash:  outputHash,
		Duration:    time.Since(start),
	}
}
