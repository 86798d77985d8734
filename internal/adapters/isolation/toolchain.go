package isolation

import (
	"context"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Toolchain is a loaded implementation bound to its private scope.
type Toolchain struct {
	manifest  Manifest
	version   domain.ToolchainVersion
	scope     *Scope
	compiler  ports.CompilerService
	adapter   capabilityAdapter
	artifacts []string
}

var _ ports.Toolchain = (*Toolchain)(nil)

// Compile runs the implementation's compiler through the capability adapter
// chosen at load time.
func (t *Toolchain) Compile(
	ctx context.Context,
	unit *domain.UnitOfWork,
	cancel *domain.Cancellation,
	sink ports.DiagnosticSink,
) (domain.ResultCode, error) {
	return t.adapter.compile(ctx, t.compiler, unit, cancel, sink)
}

// Implementation returns the implementation id.
func (t *Toolchain) Implementation() string {
	return t.manifest.Implementation
}

// Version returns the declared version.
func (t *Toolchain) Version() domain.ToolchainVersion {
	return t.version
}

// Capabilities returns the capability set of the selected adapter.
func (t *Toolchain) Capabilities() domain.Capabilities {
	return t.adapter.capabilities()
}

// Artifacts returns the artifact locations.
func (t *Toolchain) Artifacts() []string {
	return slices.Clone(t.artifacts)
}

// Scope returns the toolchain's private scope.
func (t *Toolchain) Scope() *Scope {
	return t.scope
}

// capabilityAdapter hides the generation-specific call shape of a compiler.
type capabilityAdapter interface {
	capabilities() domain.Capabilities
	compile(
		ctx context.Context,
		svc ports.CompilerService,
		unit *domain.UnitOfWork,
		cancel *domain.Cancellation,
		sink ports.DiagnosticSink,
	) (domain.ResultCode, error)
}

func selectAdapter(v domain.ToolchainVersion) capabilityAdapter {
	caps := v.Capabilities()
	if caps.Generation == domain.GenerationCurrent {
		return currentAdapter{caps: caps}
	}
	return legacyAdapter{caps: caps}
}

// legacyAdapter drives compilers that predate cooperative cancellation.
// They never see a cancellation token.
type legacyAdapter struct {
	caps domain.Capabilities
}

func (a legacyAdapter) capabilities() domain.Capabilities {
	return a.caps
}

func (legacyAdapter) compile(
	ctx context.Context,
	svc ports.CompilerService,
	unit *domain.UnitOfWork,
	_ *domain.Cancellation,
	sink ports.DiagnosticSink,
) (domain.ResultCode, error) {
	return svc.Compile(ctx, unit, nil, sink)
}

type currentAdapter struct {
	caps domain.Capabilities
}

func (a currentAdapter) capabilities() domain.Capabilities {
	return a.caps
}

func (currentAdapter) compile(
	ctx context.Context,
	svc ports.CompilerService,
	unit *domain.UnitOfWork,
	cancel *domain.Cancellation,
	sink ports.DiagnosticSink,
) (domain.ResultCode, error) {
	return svc.Compile(ctx, unit, cancel, sink)
}
