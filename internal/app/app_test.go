package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/cas"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/isolation"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/adapters/refc"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	t         *testing.T
	root      string
	scenario  *domain.Scenario
	loader    *mocks.MockConfigLoader
	connector *mocks.MockWorkerConnector
	store     *cas.Store
	out       *bytes.Buffer
	app       *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	registry, err := isolation.NewRegistry(refc.NewProvider())
	require.NoError(t, err)
	toolchains := isolation.NewLoader(registry, isolation.NewAPIScope(isolation.DefaultPolicy()), isolation.WithSearchPath())
	location, err := refc.Install(t.TempDir(), "2.3.0")
	require.NoError(t, err)

	f := &fixture{
		t:    t,
		root: root,
		scenario: &domain.Scenario{
			Path:      filepath.Join(root, domain.ConfigFileName),
			Graph:     domain.NewModuleGraph(root),
			Mode:      domain.InProcess(),
			Artifacts: []string{location},
		},
		loader:    mocks.NewMockConfigLoader(ctrl),
		connector: mocks.NewMockWorkerConnector(ctrl),
		store:     cas.NewStore(),
		out:       new(bytes.Buffer),
	}
	f.loader.EXPECT().Load(gomock.Any()).Return(f.scenario, nil).AnyTimes()

	sinks := func(module string) ports.DiagnosticRecorder { return logger.NewDiagnostics(module, nil) }
	f.app = app.New(f.loader, toolchains, f.connector, f.store, fs.NewHasher(fs.NewWalker()),
		telemetry.NewNoOpTracer(), metrics.NewRecorder(), log, sinks).WithOutput(f.out)
	return f
}

func (f *fixture) module(name, source string, deps ...string) *domain.Module {
	f.t.Helper()
	m, err := f.scenario.Graph.AddModule(name, deps...)
	require.NoError(f.t, err)
	path := filepath.Join(f.root, "src", name, "Main"+name+".kt")
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(f.t, os.WriteFile(path, []byte(source), 0o600))
	require.NoError(f.t, m.AddSources(path))
	return m
}

const libSource = "fun greet(name: String) = name\n"

const appSource = "import greet\n\nfun main() = greet(\"kiln\")\n"

func TestApp_Build(t *testing.T) {
	f := newFixture(t)
	f.module("lib", libSource)
	main := f.module("app", appSource, "lib")
	f.scenario.MetricsTextfile = filepath.Join(f.root, "kiln.prom")

	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{}))

	assert.Contains(t, f.out.String(), "2 modules built, 0 failed")
	assert.FileExists(t, filepath.Join(main.OutputDir(), "Mainapp.class"))
	assert.FileExists(t, f.scenario.MetricsTextfile)

	record, err := f.store.Get(f.root, "app")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, record.Outcome)
}

func TestApp_BuildFailure(t *testing.T) {
	f := newFixture(t)
	f.module("app", appSource)

	err := f.app.Build(context.Background(), app.BuildOptions{})
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Contains(t, f.out.String(), "compilation-error")
	assert.Contains(t, f.out.String(), "unresolved reference: greet")
}

func TestApp_BuildPreCancelled(t *testing.T) {
	f := newFixture(t)
	f.module("lib", libSource)
	main := f.module("app", appSource, "lib")

	err := f.app.Build(context.Background(), app.BuildOptions{Cancel: []string{"app"}})
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Contains(t, f.out.String(), "app  cancelled")
	assert.NoDirExists(t, main.OutputDir())
}

func TestApp_BuildSubset(t *testing.T) {
	f := newFixture(t)
	lib := f.module("lib", libSource)
	f.module("app", appSource, "lib")

	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{
		Modules: []string{"lib"},
		Unknown: true,
	}))
	assert.Contains(t, f.out.String(), "1 modules built, 0 failed")
	assert.DirExists(t, lib.OutputDir())
}

func TestApp_BuildChangedModule(t *testing.T) {
	f := newFixture(t)
	lib := f.module("lib", libSource)
	f.module("app", appSource, "lib")
	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{}))

	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{
		Changed: "lib",
		Known:   lib.SourceFiles(),
	}))
}

func TestApp_BuildKnownChangeRelativeToWorkingDir(t *testing.T) {
	f := newFixture(t)
	lib := f.module("lib", libSource)
	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{}))

	class := filepath.Join(lib.OutputDir(), "Mainlib.class")
	before, err := os.ReadFile(class)
	require.NoError(t, err)

	source := lib.SourceFiles()[0]
	require.NoError(t, os.WriteFile(source, []byte("fun greet(name: String) = name + name\n"), 0o600))

	t.Chdir(f.root)
	rel, err := filepath.Rel(f.root, source)
	require.NoError(t, err)
	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{
		Changed: "lib",
		Known:   []string{rel},
	}))

	after, err := os.ReadFile(class)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestApp_BuildRelativeArtifactReachesWorkerAbsolute(t *testing.T) {
	f := newFixture(t)
	f.module("lib", libSource)

	dir := t.TempDir()
	location, err := refc.Install(filepath.Join(dir, "tc"), "2.3.0")
	require.NoError(t, err)
	t.Chdir(dir)
	rel, err := filepath.Rel(dir, location)
	require.NoError(t, err)

	client := mocks.NewMockWorkerClient(gomock.NewController(t))
	f.connector.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(client, nil)
	client.EXPECT().Compile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *ports.WorkerCompileRequest) (*ports.WorkerCompileResult, error) {
			assert.NotEmpty(t, req.Artifacts)
			for _, artifact := range req.Artifacts {
				assert.True(t, filepath.IsAbs(artifact), artifact)
			}
			return &ports.WorkerCompileResult{Code: domain.ResultSuccess}, nil
		})
	client.EXPECT().Close().Return(nil).AnyTimes()

	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{
		Mode:      "worker",
		Artifacts: []string{rel},
	}))
}

func TestApp_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		opts app.BuildOptions
		want error
	}{
		{
			name: "change without module",
			opts: app.BuildOptions{Known: []string{"A.kt"}},
			want: domain.ErrChangeWithoutModule,
		},
		{
			name: "invalid mode",
			opts: app.BuildOptions{Mode: "remote"},
			want: domain.ErrInvalidExecutionMode,
		},
		{
			name: "unknown changed module",
			opts: app.BuildOptions{Changed: "ghost", Unknown: true},
			want: domain.ErrUnknownModule,
		},
		{
			name: "missing artifacts",
			opts: app.BuildOptions{Artifacts: []string{"/nonexistent/kiln-impl"}},
			want: domain.ErrNoImplementationFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.module("lib", libSource)

			err := f.app.Build(context.Background(), tt.opts)
			require.ErrorContains(t, err, tt.want.Error())
		})
	}
}

func TestApp_BuildConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(nil, domain.ErrConfigNotFound)

	a := app.New(loader, nil, nil, nil, nil, nil, nil, nil, nil)
	err := a.Build(context.Background(), app.BuildOptions{})
	require.ErrorContains(t, err, "failed to load configuration")
	require.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
}

func TestApp_Order(t *testing.T) {
	f := newFixture(t)
	f.module("app", appSource, "lib")
	f.module("lib", libSource)

	require.NoError(t, f.app.Order(context.Background()))
	assert.Equal(t, "  1  lib\n  2  app\n", f.out.String())
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t)
	lib := f.module("lib", libSource)
	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{}))
	require.DirExists(t, lib.OutputDir())
	records := filepath.Join(f.root, domain.DefaultRecordsPath())
	require.DirExists(t, records)

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{Outputs: true}))
	assert.NoDirExists(t, lib.OutputDir())
	assert.NoDirExists(t, lib.IncrementalDir())
	assert.DirExists(t, records)

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{Records: true}))
	assert.NoDirExists(t, records)
}

func TestApp_WorkerStatusWithoutWorker(t *testing.T) {
	f := newFixture(t)
	workDir := domain.DefaultWorkerDir(f.root)
	f.connector.EXPECT().IsRunning(workDir).Return(false)

	require.NoError(t, f.app.WorkerStatus(context.Background(), app.WorkerOptions{}))
	assert.Contains(t, f.out.String(), "no worker is running in "+workDir)
}

func TestApp_StopWorkerWithoutWorker(t *testing.T) {
	f := newFixture(t)
	f.scenario.Mode = domain.Worker(nil, 0, filepath.Join(f.root, "w"))
	f.connector.EXPECT().IsRunning(filepath.Join(f.root, "w")).Return(false)

	require.NoError(t, f.app.StopWorker(context.Background(), app.WorkerOptions{}))
}

func TestApp_InstallToolchain(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	location, err := f.app.InstallToolchain(context.Background(), dir, "2.2.21")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(location, domain.ArtifactManifestName))

	f.scenario.Artifacts = []string{location}
	f.module("lib", libSource)
	require.NoError(t, f.app.Build(context.Background(), app.BuildOptions{}))

	record, err := f.store.Get(f.root, "lib")
	require.NoError(t, err)
	assert.Equal(t, "2.2.21", record.ToolchainVersion)
}
