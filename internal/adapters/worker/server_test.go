package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/isolation"
	"go.trai.ch/kiln/internal/adapters/refc"
	"go.trai.ch/kiln/internal/adapters/worker"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

type harness struct {
	workDir   string
	artifacts map[string][]string
	client    *worker.Client
	done      chan error
	stop      context.CancelFunc
}

// startWorker serves a worker in-process on a socket in a short temp directory.
func startWorker(t *testing.T) *harness {
	t.Helper()

	// Unix socket paths are length limited, so avoid the long t.TempDir paths.
	workDir, err := os.MkdirTemp("", "kiln-w")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(workDir) })

	registry, err := isolation.NewRegistry(refc.NewProvider())
	require.NoError(t, err)
	loader := isolation.NewLoader(registry, isolation.NewAPIScope(isolation.DefaultPolicy()), isolation.WithSearchPath())

	artifactDir := t.TempDir()
	h := &harness{workDir: workDir, artifacts: make(map[string][]string), done: make(chan error, 1)}
	for _, v := range []string{"2.2.21", "2.3.0"} {
		location, err := refc.Install(artifactDir, v)
		require.NoError(t, err)
		h.artifacts[v] = []string{location}
	}

	srv := worker.NewServer(worker.NewLifecycle(time.Minute), loader, workDir)
	ctx, stop := context.WithCancel(context.Background())
	h.stop = stop
	go func() { h.done <- srv.Serve(ctx) }()

	connector, err := worker.NewConnector()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return connector.IsRunning(workDir) }, 5*time.Second, 20*time.Millisecond)

	h.client, err = worker.Dial(workDir)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.client.Close()
		stop()
		<-h.done
	})
	return h
}

type project struct {
	graph *domain.ModuleGraph
	lib   *domain.Module
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	g := domain.NewModuleGraph(root)
	lib, err := g.AddModule("lib")
	require.NoError(t, err)

	src := filepath.Join(root, "src", "Greeter.kt")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("fun greet(name: String) = name\n"), 0o600))
	require.NoError(t, lib.AddSources(src))
	return &project{graph: g, lib: lib}
}

func (p *project) unit(id string) *domain.UnitOfWork {
	ic := domain.ConfigureIncremental(p.lib, domain.ToBeCalculated(), nil)
	return domain.NewUnitOfWork(id, p.lib, nil, &ic)
}

func TestServer_PingAndStatus(t *testing.T) {
	h := startWorker(t)
	ctx := context.Background()

	require.NoError(t, h.client.Ping(ctx))
	status, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Equal(t, 0, status.InFlight)
	assert.FileExists(t, domain.WorkerPIDPath(h.workDir))
}

func TestServer_Compile(t *testing.T) {
	h := startWorker(t)
	p := newProject(t)

	result, err := h.client.Compile(context.Background(), &ports.WorkerCompileRequest{
		Artifacts: h.artifacts["2.3.0"],
		Unit:      p.unit("unit-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, result.Code)
	assert.False(t, result.Cancelled)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.Diagnostics)
	assert.FileExists(t, filepath.Join(p.lib.OutputDir(), "Greeter.class"))
}

func TestServer_CancelBeforeArrival(t *testing.T) {
	h := startWorker(t)
	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, h.client.Cancel(ctx, "unit-early"))

	result, err := h.client.Compile(ctx, &ports.WorkerCompileRequest{
		Artifacts: h.artifacts["2.3.0"],
		Unit:      p.unit("unit-early"),
	})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.NoDirExists(t, p.lib.OutputDir())
}

func TestServer_CancelInFlight(t *testing.T) {
	for _, tt := range []struct {
		version   string
		cancelled bool
	}{
		{"2.3.0", true},
		{"2.2.21", false},
	} {
		t.Run(tt.version, func(t *testing.T) {
			h := startWorker(t)
			p := newProject(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			barrier := worker.NewBarrier(t.TempDir())
			type outcome struct {
				result *ports.WorkerCompileResult
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				r, err := h.client.Compile(ctx, &ports.WorkerCompileRequest{
					Artifacts: h.artifacts[tt.version],
					Unit:      p.unit("unit-inflight"),
					Barrier:   barrier.Path(),
				})
				done <- outcome{r, err}
			}()

			require.NoError(t, barrier.WaitArrival(ctx))
			status, err := h.client.Status(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, status.InFlight)

			require.NoError(t, h.client.Cancel(ctx, "unit-inflight"))
			require.NoError(t, barrier.Release())

			got := <-done
			require.NoError(t, got.err)
			assert.Equal(t, tt.cancelled, got.result.Cancelled)
			if !tt.cancelled {
				assert.Equal(t, domain.ResultSuccess, got.result.Code)
			}
		})
	}
}

func TestServer_UnknownArtifacts(t *testing.T) {
	h := startWorker(t)
	p := newProject(t)

	result, err := h.client.Compile(context.Background(), &ports.WorkerCompileRequest{
		Artifacts: []string{t.TempDir()},
		Unit:      p.unit("unit-x"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultInternalError, result.Code)
	assert.Contains(t, result.Error, domain.ErrNoImplementationFound.Error())
}

func TestServer_RejectsUnitWithoutID(t *testing.T) {
	h := startWorker(t)
	_, err := h.client.Compile(context.Background(), &ports.WorkerCompileRequest{Unit: &domain.UnitOfWork{}})
	require.Error(t, err)
}

func TestServer_Shutdown(t *testing.T) {
	h := startWorker(t)

	require.NoError(t, h.client.Shutdown(context.Background()))
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- nil
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.NoFileExists(t, domain.WorkerSocketPath(h.workDir))
	assert.NoFileExists(t, domain.WorkerPIDPath(h.workDir))
}

func TestConnector_ConnectReusesRunningWorker(t *testing.T) {
	h := startWorker(t)
	connector, err := worker.NewConnector()
	require.NoError(t, err)

	mode := domain.Worker(nil, time.Minute, h.workDir)
	client, err := connector.Connect(context.Background(), mode)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	require.NoError(t, client.Ping(context.Background()))
}

func TestConnector_IsRunningWithoutWorker(t *testing.T) {
	connector, err := worker.NewConnector()
	require.NoError(t, err)
	assert.False(t, connector.IsRunning(""))
	assert.False(t, connector.IsRunning(t.TempDir()))
}

func TestSpawnArgs(t *testing.T) {
	mode := domain.Worker([]string{"--log-level", "debug"}, 45*time.Second, "/w")
	assert.Equal(t, []string{
		"worker", "serve",
		"--work-dir", "/w",
		"--shutdown-delay", "45s",
		"--log-level", "debug",
	}, worker.SpawnArgs("/w", mode))
}
