package refc

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Compiler compiles modules. Each loaded toolchain owns one Compiler and with
// it one in-memory snapshot cache.
type Compiler struct {
	version string
	cache   *snapshotCache
}

var _ ports.CompilerService = (*Compiler)(nil)

// NewCompiler creates a compiler reporting the given toolchain version.
func NewCompiler(version string) *Compiler {
	return &Compiler{version: version, cache: newSnapshotCache()}
}

// Version returns the toolchain version baked into outputs.
func (c *Compiler) Version() string {
	return c.version
}

// CachedSnapshots returns the number of snapshots held in memory.
func (c *Compiler) CachedSnapshots() int {
	return c.cache.len()
}

type source struct {
	path   string
	hash   string
	parsed *Parsed
}

func (s *source) state() FileState {
	return FileState{
		Hash:     s.hash,
		BodyHash: s.parsed.BodyHash,
		Imports:  s.parsed.Imports,
		Decls:    s.parsed.Decls,
		Class:    ClassName(s.path),
	}
}

type buildPlan struct {
	full    bool
	dirty   []string
	removed []string
}

func (p buildPlan) upToDate() bool {
	return !p.full && len(p.dirty) == 0 && len(p.removed) == 0
}

// Compile compiles one unit of work.
//
// With a nil cancellation the compiler never stops early. Otherwise it checks
// for a cancellation request before starting and between sources.
func (c *Compiler) Compile(
	ctx context.Context,
	unit *domain.UnitOfWork,
	cancel *domain.Cancellation,
	sink ports.DiagnosticSink,
) (code domain.ResultCode, err error) {
	d := &reporter{sink: sink}
	defer func() {
		if r := recover(); r != nil {
			d.errorf("internal compiler error: %v", r)
			code, err = domain.ResultInternalError, nil
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.ResultInternalError, err
	}
	if err := checkpoint(cancel); err != nil {
		return domain.ResultInternalError, err
	}

	sources, ok := parseSources(unit.Sources, d)
	if !ok {
		return domain.ResultCompilationError, nil
	}
	byPath := make(map[string]*source, len(sources))
	for _, s := range sources {
		byPath[s.path] = s
	}
	if !uniqueClasses(sources, d) {
		return domain.ResultCompilationError, nil
	}

	ic := unit.Incremental
	useCache := ic != nil && ic.Options.KeepCachesInMemory

	var prev *Snapshot
	if ic != nil && ic.Change.Kind != domain.ChangeUnknown {
		prev = c.cache.load(ic.SnapshotPath, useCache)
		if prev != nil && (prev.Toolchain != c.version || prev.Module != unit.Module) {
			prev = nil
		}
		if prev == nil {
			d.debugf("no usable snapshot for %s, rebuilding from scratch", unit.Module)
		}
	}
	depABI := c.dependencyABI(ic, useCache)

	plan := c.plan(unit, sources, prev, depABI)
	if plan.upToDate() {
		d.infof("%s is up-to-date", unit.Module)
		return domain.ResultSuccess, nil
	}

	index, err := loadIndex(unit.ClasspathEntries())
	if err != nil {
		d.errorf("%v", err)
		return domain.ResultInternalError, nil
	}
	local := make(symbolIndex)
	for _, s := range sources {
		for _, decl := range s.parsed.Decls {
			local[decl.Name] = append(local[decl.Name], decl.Signature)
		}
	}
	if !resolveImports(plan.dirty, byPath, index, local, d) {
		return domain.ResultCompilationError, nil
	}

	if plan.full {
		if err := pruneOutputs(unit, ic); err != nil {
			d.errorf("%v", err)
			return domain.ResultInternalError, nil
		}
	}
	if err := os.MkdirAll(unit.OutputDir, domain.DirPerm); err != nil {
		d.errorf("failed to create output directory %s: %v", unit.OutputDir, err)
		return domain.ResultInternalError, nil
	}

	for i, path := range plan.dirty {
		if i > 0 {
			if err := checkpoint(cancel); err != nil {
				return domain.ResultInternalError, err
			}
		}
		s := byPath[path]
		out := filepath.Join(unit.OutputDir, ClassName(path))
		data := c.renderClass(unit.Module, s, index, local)
		if err := os.WriteFile(out, data, domain.FilePerm); err != nil {
			d.errorf("failed to write %s: %v", out, err)
			return domain.ResultInternalError, nil
		}
	}
	removeStale(unit.OutputDir, plan.removed, sources, d)

	states := make(map[string]FileState, len(sources))
	dirty := make(map[string]bool, len(plan.dirty))
	for _, p := range plan.dirty {
		dirty[p] = true
	}
	var decls []Decl
	for _, s := range sources {
		st := s.state()
		if prevState, ok := prevFile(prev, s.path); ok && !dirty[s.path] {
			st = prevState
		}
		states[s.path] = st
		decls = append(decls, st.Decls...)
	}

	abiHash, err := writeIndex(unit.OutputDir, unit.Module, decls)
	if err != nil {
		d.errorf("%v", err)
		return domain.ResultInternalError, nil
	}

	if ic != nil {
		snap := &Snapshot{
			Toolchain:     c.version,
			Module:        unit.Module,
			Classpath:     unit.Classpath,
			ABIHash:       abiHash,
			DependencyABI: depABI,
			Files:         states,
		}
		data, err := writeSnapshot(ic.SnapshotPath, snap)
		if err != nil {
			d.errorf("%v", err)
			return domain.ResultInternalError, nil
		}
		if useCache {
			c.cache.store(ic.SnapshotPath, snap, data)
		}
	}

	d.infof("compiled %d of %d sources for %s", len(plan.dirty), len(sources), unit.Module)
	return domain.ResultSuccess, nil
}

func (c *Compiler) dependencyABI(ic *domain.IncrementalConfig, useCache bool) map[string]string {
	abi := make(map[string]string)
	if ic == nil {
		return abi
	}
	for _, path := range ic.DependencySnapshots {
		if s := c.cache.load(path, useCache); s != nil {
			abi[path] = s.ABIHash
		} else {
			abi[path] = ""
		}
	}
	return abi
}

func (c *Compiler) plan(unit *domain.UnitOfWork, sources []*source, prev *Snapshot, depABI map[string]string) buildPlan {
	all := make([]string, len(sources))
	current := make(map[string]bool, len(sources))
	for i, s := range sources {
		all[i] = s.path
		current[s.path] = true
	}
	if prev == nil {
		return buildPlan{full: true, dirty: all}
	}

	removedSet := make(map[string]bool)
	for path := range prev.Files {
		if !current[path] {
			removedSet[path] = true
		}
	}
	ic := unit.Incremental
	if ic.Change.Kind == domain.ChangeKnown {
		for _, path := range ic.Change.Removed {
			if !current[filepath.Clean(path)] {
				removedSet[filepath.Clean(path)] = true
			}
		}
	}
	removed := slices.Sorted(maps.Keys(removedSet))

	indexPath := filepath.Join(unit.OutputDir, unit.Module+ABIExt)
	if prev.Classpath != unit.Classpath || !maps.Equal(prev.DependencyABI, depABI) || !exists(indexPath) {
		return buildPlan{dirty: all, removed: removed}
	}

	changed := make(map[string]bool)
	if ic.Change.Kind == domain.ChangeKnown {
		for _, path := range ic.Change.Changed {
			changed[filepath.Clean(path)] = true
		}
	}

	var dirty []string
	for _, s := range sources {
		st, ok := prev.Files[s.path]
		switch {
		case !ok:
			dirty = append(dirty, s.path)
		case !exists(filepath.Join(unit.OutputDir, st.Class)):
			dirty = append(dirty, s.path)
		case ic.Change.Kind == domain.ChangeKnown && changed[s.path]:
			dirty = append(dirty, s.path)
		case ic.Change.Kind == domain.ChangeToBeCalculated && st.Hash != s.hash:
			dirty = append(dirty, s.path)
		}
	}
	return buildPlan{dirty: dirty, removed: removed}
}

func (c *Compiler) renderClass(module string, s *source, index, local symbolIndex) []byte {
	var deps strings.Builder
	for _, name := range s.parsed.Imports {
		sigs, ok := local[name]
		if !ok {
			sigs = index[name]
		}
		sorted := slices.Sorted(slices.Values(sigs))
		deps.WriteString(name + "\t" + strings.Join(sorted, "\n") + "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "refc %s\n", c.version)
	fmt.Fprintf(&b, "module %s\n", module)
	fmt.Fprintf(&b, "source %s\n", filepath.Base(s.path))
	fmt.Fprintf(&b, "abi %s\n", hashBytes(renderIndex(s.parsed.Decls)))
	fmt.Fprintf(&b, "deps %s\n", hashBytes([]byte(deps.String())))
	fmt.Fprintf(&b, "body %s\n", s.parsed.BodyHash)
	return []byte(b.String())
}

func parseSources(paths []string, d *reporter) ([]*source, bool) {
	sorted := make([]string, 0, len(paths))
	for _, p := range paths {
		sorted = append(sorted, filepath.Clean(p))
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	sources := make([]*source, 0, len(sorted))
	ok := true
	for _, path := range sorted {
		data, err := os.ReadFile(path) //nolint:gosec // sources are declared by the build configuration
		if err != nil {
			d.errorf("%s: source file not found", path)
			ok = false
			continue
		}
		parsed, err := Parse(path, data)
		if err != nil {
			d.errorf("%v", err)
			ok = false
			continue
		}
		sources = append(sources, &source{path: path, hash: hashBytes(data), parsed: parsed})
	}
	return sources, ok
}

func uniqueClasses(sources []*source, d *reporter) bool {
	seen := make(map[string]string, len(sources))
	ok := true
	for _, s := range sources {
		class := ClassName(s.path)
		if other, dup := seen[class]; dup {
			d.errorf("%s: duplicate class %s, also produced by %s", s.path, class, other)
			ok = false
			continue
		}
		seen[class] = s.path
	}
	return ok
}

func resolveImports(paths []string, byPath map[string]*source, index, local symbolIndex, d *reporter) bool {
	ok := true
	for _, path := range paths {
		for _, name := range byPath[path].parsed.Imports {
			if _, found := local[name]; found {
				continue
			}
			if _, found := index[name]; found {
				continue
			}
			d.errorf("%s: unresolved reference: %s", path, name)
			ok = false
		}
	}
	return ok
}

// pruneOutputs empties the output directories the compiler owns before a full rebuild.
func pruneOutputs(unit *domain.UnitOfWork, ic *domain.IncrementalConfig) error {
	owned := []string{unit.OutputDir}
	if ic != nil && len(ic.Options.OwnedOutputDirs) > 0 {
		owned = ic.Options.OwnedOutputDirs
	}
	for _, dir := range owned {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to prune output directory"), "dir", dir)
		}
	}
	return nil
}

func removeStale(outputDir string, removed []string, sources []*source, d *reporter) {
	produced := make(map[string]bool, len(sources))
	for _, s := range sources {
		produced[ClassName(s.path)] = true
	}
	for _, path := range removed {
		class := ClassName(path)
		if produced[class] {
			continue
		}
		if err := os.Remove(filepath.Join(outputDir, class)); err != nil && !os.IsNotExist(err) {
			d.warnf("failed to remove stale output %s: %v", class, err)
		}
	}
}

func prevFile(prev *Snapshot, path string) (FileState, bool) {
	if prev == nil {
		return FileState{}, false
	}
	st, ok := prev.Files[path]
	return st, ok
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func checkpoint(cancel *domain.Cancellation) error {
	if cancel == nil {
		return nil
	}
	return cancel.Checkpoint()
}

type reporter struct {
	sink ports.DiagnosticSink
}

func (r *reporter) report(level domain.LogLevel, format string, args ...any) {
	if r.sink == nil {
		return
	}
	r.sink.Report(level, fmt.Sprintf(format, args...))
}

func (r *reporter) debugf(format string, args ...any) { r.report(domain.LogLevelDebug, format, args...) }
func (r *reporter) infof(format string, args ...any)  { r.report(domain.LogLevelInfo, format, args...) }
func (r *reporter) warnf(format string, args ...any)  { r.report(domain.LogLevelWarn, format, args...) }
func (r *reporter) errorf(format string, args ...any) { r.report(domain.LogLevelError, format, args...) }
