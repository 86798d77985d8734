// Package driver dispatches single module compilations to the loaded toolchain.
package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Request describes one module compilation.
type Request struct {
	Module      *domain.Module
	Classpath   []string
	Incremental *domain.IncrementalConfig
	Mode        domain.ExecutionMode
	// Cancel is the module's cancellation token. Nil means the compilation cannot be cancelled.
	Cancel *domain.Cancellation
	// Barrier names a rendezvous file a worker waits on before its first checkpoint.
	Barrier string
}

// Driver implements the compilation of one module against a loaded toolchain,
// either in-process or on a worker.
type Driver struct {
	toolchain ports.Toolchain
	connector ports.WorkerConnector
	tracer    ports.Tracer
	metrics   ports.Metrics
	sinks     ports.DiagnosticRecorderFactory
	newID     func() string

	mu      sync.Mutex
	clients map[string]ports.WorkerClient
}

// New creates a driver for tc. The connector is only used in worker mode.
func New(
	tc ports.Toolchain,
	connector ports.WorkerConnector,
	tracer ports.Tracer,
	metrics ports.Metrics,
	sinks ports.DiagnosticRecorderFactory,
) *Driver {
	return &Driver{
		toolchain: tc,
		connector: connector,
		tracer:    tracer,
		metrics:   metrics,
		sinks:     sinks,
		newID:     uuid.NewString,
		clients:   make(map[string]ports.WorkerClient),
	}
}

// Toolchain returns the toolchain the driver compiles with.
func (d *Driver) Toolchain() ports.Toolchain {
	return d.toolchain
}

// Compile builds the unit of work of req, dispatches it and translates the
// compiler result into an outcome. It never returns an error: failures are
// part of the result.
func (d *Driver) Compile(ctx context.Context, req Request) domain.CompilationResult {
	start := time.Now()
	module := req.Module.Name()

	ctx, span := d.tracer.Start(ctx, "compile",
		ports.WithAttribute("module", module),
		ports.WithAttribute("mode", req.Mode.String()),
	)
	defer span.End()

	unit := domain.NewUnitOfWork(d.newID(), req.Module, req.Classpath, req.Incremental)
	span.SetAttribute("unit", unit.ID)
	sink := d.sinks(module)

	cancel := req.Cancel
	if cancel == nil {
		cancel = domain.NewCancellation()
	}

	var outcome domain.Outcome
	if req.Mode.IsWorker() {
		outcome = d.compileOnWorker(ctx, req, unit, cancel, sink)
	} else {
		outcome = d.compileInProcess(ctx, unit, cancel, sink)
	}

	span.SetAttribute("outcome", string(outcome))
	if !outcome.IsSuccess() && outcome != domain.OutcomeCancelled {
		span.RecordError(zerr.With(zerr.New("module did not compile"), "outcome", string(outcome)))
	}
	if d.metrics != nil {
		d.metrics.RecordCompilation(module, req.Mode.Kind, outcome, time.Since(start))
	}

	return domain.CompilationResult{Outcome: outcome, Diagnostics: sink.Entries()}
}

func (d *Driver) compileInProcess(
	ctx context.Context,
	unit *domain.UnitOfWork,
	cancel *domain.Cancellation,
	sink ports.DiagnosticSink,
) domain.Outcome {
	// Attaching without a hook still closes the window in which a request
	// could slip in between the check and the dispatch.
	if err := cancel.Attach(nil); err != nil {
		cancel.Honor()
		return domain.OutcomeCancelled
	}

	code, err := d.toolchain.Compile(ctx, unit, cancel, sink)
	cancel.Finish()
	return translate(code, err, sink)
}

func (d *Driver) compileOnWorker(
	ctx context.Context,
	req Request,
	unit *domain.UnitOfWork,
	cancel *domain.Cancellation,
	sink ports.DiagnosticSink,
) domain.Outcome {
	if cancel.IsRequested() {
		cancel.Honor()
		return domain.OutcomeCancelled
	}

	client, err := d.client(ctx, req.Mode)
	if err != nil {
		sink.Report(domain.LogLevelError, err.Error())
		return domain.OutcomeInternalError
	}

	id := unit.ID
	if err := cancel.Attach(func(ctx context.Context) error {
		return client.Cancel(ctx, id)
	}); err != nil {
		cancel.Honor()
		return domain.OutcomeCancelled
	}
	defer cancel.Detach()

	res, err := client.Compile(ctx, &ports.WorkerCompileRequest{
		Artifacts: d.toolchain.Artifacts(),
		Unit:      unit,
		Barrier:   req.Barrier,
	})
	if err != nil {
		// An interrupted call is the cancellation taking effect, not a broken worker.
		if cancel.IsRequested() || ctx.Err() != nil {
			cancel.Honor()
			return domain.OutcomeCancelled
		}
		cancel.Finish()
		d.forget(req.Mode.WorkDir)
		sink.Report(domain.LogLevelError, err.Error())
		return domain.OutcomeInternalError
	}

	for _, diag := range res.Diagnostics {
		sink.Report(diag.Level, diag.Message)
	}
	if res.Cancelled {
		cancel.Honor()
		return domain.OutcomeCancelled
	}
	cancel.Finish()

	var compileErr error
	if res.Error != "" {
		compileErr = errors.New(res.Error)
	}
	return translate(res.Code, compileErr, sink)
}

func translate(code domain.ResultCode, err error, sink ports.DiagnosticSink) domain.Outcome {
	switch {
	case errors.Is(err, domain.ErrCompilationCancelled):
		return domain.OutcomeCancelled
	case err != nil:
		sink.Report(domain.LogLevelError, err.Error())
		return domain.OutcomeInternalError
	default:
		return domain.OutcomeFromResult(code)
	}
}

// client returns a connected worker client for the mode, reusing an earlier connection.
func (d *Driver) client(ctx context.Context, mode domain.ExecutionMode) (ports.WorkerClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.clients[mode.WorkDir]; ok {
		return c, nil
	}
	if d.connector == nil {
		return nil, zerr.With(domain.ErrWorkerUnavailable, "reason", "no worker connector configured")
	}
	c, err := d.connector.Connect(ctx, mode)
	if err != nil {
		return nil, err
	}
	d.clients[mode.WorkDir] = c
	return c, nil
}

func (d *Driver) forget(workDir string) {
	d.mu.Lock()
	c, ok := d.clients[workDir]
	delete(d.clients, workDir)
	d.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

// Close releases every worker connection.
func (d *Driver) Close() error {
	d.mu.Lock()
	clients := d.clients
	d.clients = make(map[string]ports.WorkerClient)
	d.mu.Unlock()

	var errs error
	for _, c := range clients {
		errs = errors.Join(errs, c.Close())
	}
	return errs
}
