package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks

// DiagnosticSink receives the messages a compiler emits during a compilation.
type DiagnosticSink interface {
	Report(level domain.LogLevel, msg string)
}

// CompilerService is the stable contract of an external compiler implementation.
//
// Compile returns ErrCompilationCancelled when it observed a cancellation
// request at one of its checkpoints. Any other error is an internal failure.
type CompilerService interface {
	Compile(
		ctx context.Context,
		unit *domain.UnitOfWork,
		cancel *domain.Cancellation,
		sink DiagnosticSink,
	) (domain.ResultCode, error)
}

// Toolchain is a loaded compiler implementation bound to its isolated scope.
// It is read-only after creation and safe to share between compilations.
type Toolchain interface {
	CompilerService

	// Implementation returns the implementation id declared by the artifact.
	Implementation() string
	// Version returns the version declared by the artifact.
	Version() domain.ToolchainVersion
	// Capabilities returns the capability set selected at load time.
	Capabilities() domain.Capabilities
	// Artifacts returns the artifact locations the toolchain was loaded from.
	Artifacts() []string
}

// ToolchainLoader resolves compiler implementation artifacts into a Toolchain.
type ToolchainLoader interface {
	// Load resolves the given artifact locations. With no locations it falls
	// back to scanning the ambient toolchain path.
	Load(ctx context.Context, artifacts []string) (Toolchain, error)
}
