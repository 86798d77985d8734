package refc

import (
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/isolation"
	"go.trai.ch/kiln/internal/core/domain"
)

// Implementation is the id artifact manifests use to select refc.
const Implementation = "refc"

// SymbolSourceExt names the source extension symbol in a refc scope.
const SymbolSourceExt = "kiln.impl.refc.source_ext"

// Provider materializes refc inside an isolated scope.
type Provider struct{}

var _ isolation.Provider = Provider{}

// NewProvider creates the refc provider.
func NewProvider() Provider {
	return Provider{}
}

// Implementation returns the refc implementation id.
func (Provider) Implementation() string {
	return Implementation
}

// Populate defines a fresh compiler for the artifact's version.
func (Provider) Populate(scope *isolation.Scope, manifest isolation.Manifest) error {
	if err := scope.Define(isolation.SymbolCompiler, NewCompiler(manifest.Version)); err != nil {
		return err
	}
	return scope.Define(SymbolSourceExt, SourceExt)
}

// Install writes an artifact directory for the given refc version under dir
// and returns its location.
func Install(dir, version string) (string, error) {
	location := filepath.Join(dir, domain.ArtifactNamePrefix+Implementation+"-"+version)
	m := isolation.Manifest{
		Implementation: Implementation,
		Version:        version,
		Symbols:        []string{isolation.SymbolCompiler, SymbolSourceExt},
	}
	if err := isolation.WriteManifest(location, m); err != nil {
		return "", err
	}
	return location, nil
}
