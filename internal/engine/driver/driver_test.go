package driver_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/driver"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recorder struct {
	mu      sync.Mutex
	entries []domain.Diagnostic
}

func (r *recorder) Report(level domain.LogLevel, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, domain.Diagnostic{Level: level, Message: msg})
}

func (r *recorder) Entries() []domain.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Diagnostic(nil), r.entries...)
}

func newRecorder(string) ports.DiagnosticRecorder {
	return &recorder{}
}

type fixture struct {
	toolchain *mocks.MockToolchain
	connector *mocks.MockWorkerConnector
	client    *mocks.MockWorkerClient
	metrics   *mocks.MockMetrics
	driver    *driver.Driver
	graph     *domain.ModuleGraph
	lib       *domain.Module
	app       *domain.Module
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		toolchain: mocks.NewMockToolchain(ctrl),
		connector: mocks.NewMockWorkerConnector(ctrl),
		client:    mocks.NewMockWorkerClient(ctrl),
		metrics:   mocks.NewMockMetrics(ctrl),
	}
	f.driver = driver.New(f.toolchain, f.connector, telemetry.NewNoOpTracer(), f.metrics, newRecorder)
	f.driver.SetIDGenerator(func() string { return "unit-1" })

	root := t.TempDir()
	f.graph = domain.NewModuleGraph(root)
	var err error
	f.lib, err = f.graph.AddModule("lib")
	require.NoError(t, err)
	require.NoError(t, f.lib.AddSources(filepath.Join(root, "lib", "A.kt")))
	f.app, err = f.graph.AddModule("app", "lib")
	require.NoError(t, err)
	require.NoError(t, f.app.AddSources(filepath.Join(root, "app", "Main.kt")))
	return f
}

func (f *fixture) request(m *domain.Module, mode domain.ExecutionMode, cancel *domain.Cancellation) driver.Request {
	ic := domain.ConfigureIncremental(m, domain.ToBeCalculated(), domain.DependencySnapshots(m, f.graph))
	return driver.Request{
		Module:      m,
		Classpath:   domain.AssembleClasspath(m, f.graph),
		Incremental: &ic,
		Mode:        mode,
		Cancel:      cancel,
	}
}

func workerMode(t *testing.T) domain.ExecutionMode {
	t.Helper()
	return domain.Worker(nil, 0, t.TempDir())
}

func TestDriver_InProcessBuildsUnitOfWork(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.app, domain.InProcess(), nil)

	f.toolchain.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit *domain.UnitOfWork, cancel *domain.Cancellation, sink ports.DiagnosticSink) (domain.ResultCode, error) {
			assert.Equal(t, "unit-1", unit.ID)
			assert.Equal(t, "app", unit.Module)
			assert.Equal(t, f.app.SourceFiles(), unit.Sources)
			assert.Equal(t, f.app.OutputDir(), unit.OutputDir)
			assert.Equal(t, f.lib.OutputDir(), unit.Classpath)
			assert.Same(t, req.Incremental, unit.Incremental)
			assert.NotNil(t, cancel)
			sink.Report(domain.LogLevelInfo, "compiled 1 of 1 sources for app")
			return domain.ResultSuccess, nil
		})
	f.metrics.EXPECT().RecordCompilation("app", domain.ExecutionInProcess, domain.OutcomeSuccess, gomock.Any())

	res := f.driver.Compile(context.Background(), req)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, []string{"compiled 1 of 1 sources for app"}, res.Messages(domain.LogLevelInfo))
}

func TestDriver_InProcessResultCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     domain.ResultCode
		err      error
		expected domain.Outcome
	}{
		{"success", domain.ResultSuccess, nil, domain.OutcomeSuccess},
		{"compilation error", domain.ResultCompilationError, nil, domain.OutcomeCompilationError},
		{"internal error", domain.ResultInternalError, nil, domain.OutcomeInternalError},
		{"cancelled", domain.ResultInternalError, domain.ErrCompilationCancelled, domain.OutcomeCancelled},
		{"failure", domain.ResultSuccess, errors.New("toolchain crashed"), domain.OutcomeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.toolchain.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.code, tt.err)
			f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionInProcess, tt.expected, gomock.Any())

			res := f.driver.Compile(context.Background(), f.request(f.lib, domain.InProcess(), nil))
			assert.Equal(t, tt.expected, res.Outcome)
			if tt.name == "failure" {
				assert.Equal(t, []string{"toolchain crashed"}, res.Messages(domain.LogLevelError))
			}
		})
	}
}

func TestDriver_CancelledBeforeDispatchNeverStarts(t *testing.T) {
	for _, tt := range []struct {
		name string
		mode func(t *testing.T) domain.ExecutionMode
	}{
		{"in-process", func(*testing.T) domain.ExecutionMode { return domain.InProcess() }},
		{"worker", workerMode},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			mode := tt.mode(t)
			token := domain.NewCancellation()
			require.NoError(t, token.Request(context.Background()))

			// Neither the toolchain nor the worker may be reached.
			f.metrics.EXPECT().RecordCompilation("lib", mode.Kind, domain.OutcomeCancelled, gomock.Any())

			res := f.driver.Compile(context.Background(), f.request(f.lib, mode, token))
			assert.Equal(t, domain.OutcomeCancelled, res.Outcome)
			assert.Equal(t, domain.CancelHonored, token.State())
		})
	}
}

func TestDriver_WorkerReusesConnection(t *testing.T) {
	f := newFixture(t)
	mode := workerMode(t)

	f.toolchain.EXPECT().Artifacts().Return([]string{"/toolchains/refc"}).Times(2)
	f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil).Times(1)
	f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			assert.Equal(t, []string{"/toolchains/refc"}, req.Artifacts)
			assert.Equal(t, "unit-1", req.Unit.ID)
			return &ports.WorkerCompileResult{
				Code:        domain.ResultSuccess,
				Diagnostics: []domain.Diagnostic{{Level: domain.LogLevelInfo, Message: "lib is up-to-date"}},
			}, nil
		}).Times(2)
	f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeSuccess, gomock.Any()).Times(2)

	for range 2 {
		res := f.driver.Compile(context.Background(), f.request(f.lib, mode, nil))
		assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
		assert.Equal(t, []string{"lib is up-to-date"}, res.Messages(domain.LogLevelInfo))
	}

	f.client.EXPECT().Close().Return(nil)
	require.NoError(t, f.driver.Close())
}

func TestDriver_WorkerCancelForwardedWhileInFlight(t *testing.T) {
	f := newFixture(t)
	mode := workerMode(t)
	token := domain.NewCancellation()

	f.toolchain.EXPECT().Artifacts().Return(nil)
	f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil)
	f.client.EXPECT().Cancel(gomock.Any(), "unit-1").Return(nil)
	f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			require.NoError(t, token.Request(ctx))
			return &ports.WorkerCompileResult{Code: domain.ResultInternalError, Cancelled: true}, nil
		})
	f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeCancelled, gomock.Any())

	res := f.driver.Compile(context.Background(), f.request(f.lib, mode, token))
	assert.Equal(t, domain.OutcomeCancelled, res.Outcome)
	assert.Equal(t, domain.CancelHonored, token.State())
}

func TestDriver_WorkerInterruptedCallIsCancelled(t *testing.T) {
	f := newFixture(t)
	mode := workerMode(t)
	token := domain.NewCancellation()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	f.toolchain.EXPECT().Artifacts().Return(nil)
	f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil)
	f.client.EXPECT().Cancel(gomock.Any(), "unit-1").Return(nil)
	f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			require.NoError(t, token.Request(ctx))
			stop()
			return nil, status.Error(codes.Canceled, "context canceled")
		})
	f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeCancelled, gomock.Any())

	res := f.driver.Compile(ctx, f.request(f.lib, mode, token))
	assert.Equal(t, domain.OutcomeCancelled, res.Outcome)
	assert.Equal(t, domain.CancelHonored, token.State())
	assert.Empty(t, res.Messages(domain.LogLevelError))
}

func TestDriver_WorkerContextDoneWithoutRequest(t *testing.T) {
	f := newFixture(t)
	mode := workerMode(t)
	ctx, stop := context.WithCancel(context.Background())

	f.toolchain.EXPECT().Artifacts().Return(nil)
	f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil)
	f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			stop()
			return nil, status.Error(codes.Canceled, "context canceled")
		})
	f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeCancelled, gomock.Any())

	res := f.driver.Compile(ctx, f.request(f.lib, mode, nil))
	assert.Equal(t, domain.OutcomeCancelled, res.Outcome)
}

func TestDriver_WorkerCancelArrivingTooLate(t *testing.T) {
	f := newFixture(t)
	mode := workerMode(t)
	token := domain.NewCancellation()

	f.toolchain.EXPECT().Artifacts().Return(nil)
	f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil)
	f.client.EXPECT().Cancel(gomock.Any(), "unit-1").Return(nil)
	f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			require.NoError(t, token.Request(ctx))
			return &ports.WorkerCompileResult{Code: domain.ResultSuccess}, nil
		})
	f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeSuccess, gomock.Any())

	res := f.driver.Compile(context.Background(), f.request(f.lib, mode, token))
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, domain.CancelTooLate, token.State())
}

func TestDriver_WorkerFailures(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		f := newFixture(t)
		mode := workerMode(t)
		f.connector.EXPECT().Connect(gomock.Any(), mode).Return(nil, domain.ErrWorkerSpawnFailed)
		f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeInternalError, gomock.Any())

		res := f.driver.Compile(context.Background(), f.request(f.lib, mode, nil))
		assert.Equal(t, domain.OutcomeInternalError, res.Outcome)
		assert.Equal(t, []string{domain.ErrWorkerSpawnFailed.Error()}, res.Messages(domain.LogLevelError))
	})

	t.Run("transport", func(t *testing.T) {
		f := newFixture(t)
		mode := workerMode(t)
		f.toolchain.EXPECT().Artifacts().Return(nil).Times(2)
		f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil).Times(2)
		gomock.InOrder(
			f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(nil, domain.ErrWorkerUnavailable),
			f.client.EXPECT().Close().Return(nil),
			f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&ports.WorkerCompileResult{Code: domain.ResultSuccess}, nil),
		)
		f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeInternalError, gomock.Any())
		f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeSuccess, gomock.Any())

		res := f.driver.Compile(context.Background(), f.request(f.lib, mode, nil))
		assert.Equal(t, domain.OutcomeInternalError, res.Outcome)

		// A broken connection is dropped and re-established on the next compilation.
		res = f.driver.Compile(context.Background(), f.request(f.lib, mode, nil))
		assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	})

	t.Run("load", func(t *testing.T) {
		f := newFixture(t)
		mode := workerMode(t)
		f.toolchain.EXPECT().Artifacts().Return(nil)
		f.connector.EXPECT().Connect(gomock.Any(), mode).Return(f.client, nil)
		f.client.EXPECT().Compile(gomock.Any(), gomock.Any()).Return(&ports.WorkerCompileResult{
			Code:  domain.ResultInternalError,
			Error: domain.ErrNoImplementationFound.Error(),
		}, nil)
		f.metrics.EXPECT().RecordCompilation("lib", domain.ExecutionWorker, domain.OutcomeInternalError, gomock.Any())

		res := f.driver.Compile(context.Background(), f.request(f.lib, mode, nil))
		assert.Equal(t, domain.OutcomeInternalError, res.Outcome)
		assert.Equal(t, []string{domain.ErrNoImplementationFound.Error()}, res.Messages(domain.LogLevelError))
	})
}
