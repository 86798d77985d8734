package refc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/refc"
	"go.trai.ch/kiln/internal/core/domain"
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

func (r *recorder) messages(level domain.LogLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

type workspace struct {
	t        *testing.T
	root     string
	graph    *domain.ModuleGraph
	compiler *refc.Compiler
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	return &workspace{t: t, root: root, graph: domain.NewModuleGraph(root), compiler: refc.NewCompiler("2.3.0")}
}

func (w *workspace) module(name string, deps ...string) *domain.Module {
	w.t.Helper()
	m, err := w.graph.AddModule(name, deps...)
	require.NoError(w.t, err)
	return m
}

func (w *workspace) write(m *domain.Module, file, content string) string {
	w.t.Helper()
	dir := filepath.Join(w.root, "src", m.Name())
	require.NoError(w.t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, file)
	require.NoError(w.t, os.WriteFile(path, []byte(content), 0o600))
	if !contains(m.SourceFiles(), path) {
		require.NoError(w.t, m.AddSources(path))
	}
	return path
}

func (w *workspace) unit(m *domain.Module, change domain.ChangeDescriptor) *domain.UnitOfWork {
	ic := domain.ConfigureIncremental(m, change, domain.DependencySnapshots(m, w.graph))
	return domain.NewUnitOfWork("u-"+m.Name(), m, domain.AssembleClasspath(m, w.graph), &ic)
}

func (w *workspace) compile(m *domain.Module, change domain.ChangeDescriptor) (domain.ResultCode, *recorder) {
	w.t.Helper()
	rec := &recorder{}
	code, err := w.compiler.Compile(context.Background(), w.unit(m, change), domain.NewCancellation(), rec)
	require.NoError(w.t, err)
	return code, rec
}

func (w *workspace) class(m *domain.Module, name string) []byte {
	w.t.Helper()
	data, err := os.ReadFile(filepath.Join(m.OutputDir(), name))
	require.NoError(w.t, err)
	return data
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

const greeterV1 = `fun greet(name: String) = "hi " + name
`

const appSource = `import greet

fun main() {
    greet("kiln")
}
`

func TestCompiler_FullBuild(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "Greeter.kt", greeterV1+"private fun helper() = 1\n")

	code, rec := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	assert.Empty(t, rec.messages(domain.LogLevelError))

	class := string(w.class(lib, "Greeter.class"))
	assert.Contains(t, class, "refc 2.3.0\n")
	assert.Contains(t, class, "module lib\n")
	assert.Contains(t, class, "source Greeter.kt\n")

	index := string(w.class(lib, "lib.kabi"))
	assert.Equal(t, "greet\tfun greet(name: String)\n", index)

	snap, err := refc.ReadSnapshot(lib.SnapshotPath())
	require.NoError(t, err)
	assert.Equal(t, "lib", snap.Module)
	assert.Equal(t, "2.3.0", snap.Toolchain)
	assert.Len(t, snap.Files, 1)
	assert.NotEmpty(t, snap.ABIHash)
	assert.Equal(t, 1, w.compiler.CachedSnapshots())
}

func TestCompiler_UpToDateIsNoop(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "Greeter.kt", greeterV1)

	code, _ := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	before, err := os.Stat(filepath.Join(lib.OutputDir(), "Greeter.class"))
	require.NoError(t, err)

	code, rec := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	assert.Contains(t, rec.messages(domain.LogLevelInfo), "lib is up-to-date")

	after, err := os.Stat(filepath.Join(lib.OutputDir(), "Greeter.class"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestCompiler_BodyChangeKeepsDownstreamOutput(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	app := w.module("app", "lib")
	w.write(lib, "Greeter.kt", greeterV1)
	w.write(app, "Main.kt", appSource)

	code, _ := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	code, _ = w.compile(app, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	libBefore := w.class(lib, "Greeter.class")
	appBefore := w.class(app, "Main.class")

	w.write(lib, "Greeter.kt", `fun greet(name: String) = "hello " + name
`)
	code, _ = w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	code, rec := w.compile(app, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)

	assert.NotEqual(t, libBefore, w.class(lib, "Greeter.class"))
	assert.Equal(t, appBefore, w.class(app, "Main.class"))
	assert.Contains(t, rec.messages(domain.LogLevelInfo), "app is up-to-date")
}

func TestCompiler_ABIChangeRecompilesDownstream(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	app := w.module("app", "lib")
	w.write(lib, "Greeter.kt", greeterV1)
	w.write(app, "Main.kt", appSource)

	w.compile(lib, domain.ToBeCalculated())
	w.compile(app, domain.ToBeCalculated())
	appBefore := w.class(app, "Main.class")

	w.write(lib, "Greeter.kt", `fun greet(name: String, punct: String = "!") = "hi " + name + punct
`)
	code, _ := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	code, rec := w.compile(app, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)

	assert.NotEqual(t, appBefore, w.class(app, "Main.class"))
	assert.Contains(t, rec.messages(domain.LogLevelInfo), "compiled 1 of 1 sources for app")
}

func TestCompiler_UnresolvedImport(t *testing.T) {
	w := newWorkspace(t)
	app := w.module("app")
	w.write(app, "Main.kt", appSource)

	code, rec := w.compile(app, domain.ToBeCalculated())
	assert.Equal(t, domain.ResultCompilationError, code)
	errs := rec.messages(domain.LogLevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unresolved reference: greet")
	assert.NoFileExists(t, filepath.Join(app.OutputDir(), "Main.class"))
}

func TestCompiler_MissingSource(t *testing.T) {
	w := newWorkspace(t)
	app := w.module("app")
	require.NoError(t, app.AddSources(filepath.Join(w.root, "src", "app", "Gone.kt")))

	code, rec := w.compile(app, domain.ToBeCalculated())
	assert.Equal(t, domain.ResultCompilationError, code)
	assert.Len(t, rec.messages(domain.LogLevelError), 1)
}

func TestCompiler_LostOrCorruptSnapshotRebuilds(t *testing.T) {
	for _, name := range []string{"deleted", "corrupt"} {
		t.Run(name, func(t *testing.T) {
			w := newWorkspace(t)
			lib := w.module("lib")
			w.write(lib, "Greeter.kt", greeterV1)
			code, _ := w.compile(lib, domain.ToBeCalculated())
			require.Equal(t, domain.ResultSuccess, code)

			// A stale output that a full rebuild must prune.
			stale := filepath.Join(lib.OutputDir(), "Stale.class")
			require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

			if name == "deleted" {
				require.NoError(t, os.Remove(lib.SnapshotPath()))
			} else {
				require.NoError(t, os.WriteFile(lib.SnapshotPath(), []byte("not msgpack"), 0o600))
			}

			code, rec := w.compile(lib, domain.ToBeCalculated())
			require.Equal(t, domain.ResultSuccess, code)
			assert.Empty(t, rec.messages(domain.LogLevelError))
			assert.FileExists(t, filepath.Join(lib.OutputDir(), "Greeter.class"))
			assert.NoFileExists(t, stale)

			_, err := refc.ReadSnapshot(lib.SnapshotPath())
			require.NoError(t, err)
		})
	}
}

func TestCompiler_KnownChanges(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	a := w.write(lib, "A.kt", "fun a() = 1\n")
	b := w.write(lib, "B.kt", "fun b() = 2\n")
	code, _ := w.compile(lib, domain.UnknownChanges())
	require.Equal(t, domain.ResultSuccess, code)
	bBefore := w.class(lib, "B.class")

	require.NoError(t, os.Remove(b))
	w.graph = domain.NewModuleGraph(w.root)
	lib = w.module("lib")
	require.NoError(t, lib.AddSources(a))
	w.write(lib, "A.kt", "fun a() = 10\n")

	code, rec := w.compile(lib, domain.KnownChanges([]string{a}, []string{b}))
	require.Equal(t, domain.ResultSuccess, code)
	assert.Contains(t, rec.messages(domain.LogLevelInfo), "compiled 1 of 1 sources for lib")
	assert.NoFileExists(t, filepath.Join(lib.OutputDir(), "B.class"))
	assert.NotEmpty(t, bBefore)
	assert.Equal(t, "a\tfun a()\n", string(w.class(lib, "lib.kabi")))
}

func TestCompiler_UnknownChangesRebuildsEverything(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "A.kt", "fun a() = 1\n")
	w.write(lib, "B.kt", "fun b() = 2\n")

	w.compile(lib, domain.ToBeCalculated())
	code, rec := w.compile(lib, domain.UnknownChanges())
	require.Equal(t, domain.ResultSuccess, code)
	assert.Contains(t, rec.messages(domain.LogLevelInfo), "compiled 2 of 2 sources for lib")
}

func TestCompiler_CancelledBeforeWork(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "Greeter.kt", greeterV1)

	cancel := domain.NewCancellation()
	require.NoError(t, cancel.Request(context.Background()))

	_, err := w.compiler.Compile(context.Background(), w.unit(lib, domain.ToBeCalculated()), cancel, &recorder{})
	require.True(t, errors.Is(err, domain.ErrCompilationCancelled))
	assert.Equal(t, domain.CancelHonored, cancel.State())
	assert.NoDirExists(t, lib.OutputDir())
}

func TestCompiler_NilCancellationRunsToCompletion(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "Greeter.kt", greeterV1)

	code, err := w.compiler.Compile(context.Background(), w.unit(lib, domain.ToBeCalculated()), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, code)
}

func TestCompiler_DuplicateClassNames(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "A.kt", "fun a() = 1\n")
	other := filepath.Join(w.root, "other")
	require.NoError(t, os.MkdirAll(other, 0o750))
	dup := filepath.Join(other, "A.kt")
	require.NoError(t, os.WriteFile(dup, []byte("fun b() = 1\n"), 0o600))
	require.NoError(t, lib.AddSources(dup))

	code, rec := w.compile(lib, domain.ToBeCalculated())
	assert.Equal(t, domain.ResultCompilationError, code)
	require.Len(t, rec.messages(domain.LogLevelError), 1)
	assert.True(t, strings.Contains(rec.messages(domain.LogLevelError)[0], "duplicate class A.class"))
}

func TestCompiler_ToolchainVersionChangeRebuilds(t *testing.T) {
	w := newWorkspace(t)
	lib := w.module("lib")
	w.write(lib, "Greeter.kt", greeterV1)
	w.compile(lib, domain.ToBeCalculated())
	before := w.class(lib, "Greeter.class")

	w.compiler = refc.NewCompiler("2.3.10")
	code, _ := w.compile(lib, domain.ToBeCalculated())
	require.Equal(t, domain.ResultSuccess, code)
	assert.NotEqual(t, before, w.class(lib, "Greeter.class"))
}
