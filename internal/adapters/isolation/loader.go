package isolation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Loader resolves artifact locations into isolated toolchains.
type Loader struct {
	registry   *Registry
	api        *Scope
	searchPath []string
	seq        atomic.Uint64
}

var _ ports.ToolchainLoader = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithSearchPath overrides the directories scanned when no artifacts are given.
func WithSearchPath(dirs ...string) Option {
	return func(l *Loader) {
		l.searchPath = dirs
	}
}

// NewLoader creates a loader. By default the fallback scan covers the
// directories listed in KILN_TOOLCHAIN_PATH.
func NewLoader(registry *Registry, api *Scope, opts ...Option) *Loader {
	l := &Loader{
		registry:   registry,
		api:        api,
		searchPath: filepath.SplitList(os.Getenv(domain.ToolchainPathEnv)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves the implementation described by the artifacts and returns a
// toolchain with its own private scope. Each call yields an independent handle.
func (l *Loader) Load(ctx context.Context, artifacts []string) (ports.Toolchain, error) {
	explicit := len(artifacts) > 0
	candidates := artifacts
	searched := artifacts
	if !explicit {
		var err error
		candidates, err = l.scan(ctx)
		if err != nil {
			return nil, err
		}
		searched = l.searchPath
	}

	manifests := make([]Manifest, 0, len(candidates))
	for _, candidate := range candidates {
		m, ok, err := ReadManifest(candidate)
		if err != nil {
			if explicit {
				return nil, err
			}
			continue
		}
		if ok {
			manifests = append(manifests, m)
		}
	}
	if len(manifests) == 0 {
		return nil, zerr.With(domain.ErrNoImplementationFound, "searched", strings.Join(searched, ", "))
	}

	var (
		chosen Manifest
		err    error
	)
	if explicit {
		chosen, err = agree(manifests)
	} else {
		chosen, err = l.newest(manifests)
	}
	if err != nil {
		return nil, err
	}

	version, err := domain.ParseToolchainVersion(chosen.Version)
	if err != nil {
		return nil, zerr.With(err, "artifact", chosen.Location)
	}

	provider, ok := l.registry.Lookup(chosen.Implementation)
	if !ok {
		return nil, zerr.With(zerr.With(domain.ErrNoImplementationFound, "implementation", chosen.Implementation),
			"searched", strings.Join(searched, ", "))
	}

	scope := l.api.NewChild(fmt.Sprintf("%s@%s#%d", chosen.Implementation, chosen.Version, l.seq.Add(1)))
	if err := scope.Define(SymbolVersion, chosen.Version); err != nil {
		return nil, err
	}
	if err := provider.Populate(scope, chosen); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to populate implementation scope"), "implementation", chosen.Implementation)
	}
	scope.Seal()

	compiler, err := ResolveAs[ports.CompilerService](scope, SymbolCompiler)
	if err != nil {
		return nil, zerr.With(err, "implementation", chosen.Implementation)
	}

	loaded := artifacts
	if !explicit {
		loaded = []string{chosen.Location}
	}
	return &Toolchain{
		manifest:  chosen,
		version:   version,
		scope:     scope,
		compiler:  compiler,
		adapter:   selectAdapter(version),
		artifacts: slices.Clone(loaded),
	}, nil
}

// agree requires all manifests of an explicit artifact set to describe one implementation.
func agree(manifests []Manifest) (Manifest, error) {
	first := manifests[0]
	for _, m := range manifests[1:] {
		if m.Implementation != first.Implementation || m.Version != first.Version {
			err := zerr.With(domain.ErrInvalidArtifact, "reason", "conflicting implementation manifests")
			return Manifest{}, zerr.With(zerr.With(err, "first", first.Location), "second", m.Location)
		}
	}
	return first, nil
}

// newest picks the highest-versioned scanned manifest with a registered provider.
func (l *Loader) newest(manifests []Manifest) (Manifest, error) {
	var (
		best    Manifest
		bestVer domain.ToolchainVersion
		found   bool
	)
	for _, m := range manifests {
		if _, ok := l.registry.Lookup(m.Implementation); !ok {
			continue
		}
		v, err := domain.ParseToolchainVersion(m.Version)
		if err != nil {
			continue
		}
		if !found || v.Compare(bestVer) > 0 {
			best, bestVer, found = m, v, true
		}
	}
	if !found {
		return Manifest{}, zerr.With(domain.ErrNoImplementationFound, "searched", strings.Join(l.searchPath, ", "))
	}
	return best, nil
}

// scan lists kiln-impl-* entries of every search directory, preserving path order.
func (l *Loader) scan(ctx context.Context) ([]string, error) {
	results := make([][]string, len(l.searchPath))
	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range l.searchPath {
		if dir == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return zerr.With(zerr.Wrap(err, "failed to scan toolchain directory"), "dir", dir)
			}
			for _, entry := range entries {
				if entry.IsDir() && strings.HasPrefix(entry.Name(), domain.ArtifactNamePrefix) {
					results[i] = append(results[i], filepath.Join(dir, entry.Name()))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}
