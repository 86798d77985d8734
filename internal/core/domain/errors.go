package domain

import "go.trai.ch/zerr"

var (
	// ErrModuleAlreadyExists is returned when attempting to add a module with a name that already exists.
	ErrModuleAlreadyExists = zerr.New("module already exists")

	// ErrUnknownModule is returned when a module or dependency refers to a name that was never declared.
	ErrUnknownModule = zerr.New("unknown module")

	// ErrCyclicDependency is returned when the module dependency graph contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrInvalidModuleName is returned when a module name is empty or contains path separators.
	ErrInvalidModuleName = zerr.New("invalid module name")

	// ErrGraphSealed is returned when a module is mutated while a build is running.
	ErrGraphSealed = zerr.New("module graph is sealed while a build is running")

	// ErrNoModulesSelected is returned when a subset build is requested with no module names.
	ErrNoModulesSelected = zerr.New("no modules selected")

	// ErrChangeWithoutModule is returned when an explicit change descriptor names no module to apply to.
	ErrChangeWithoutModule = zerr.New("explicit changes need a changed module or a module selection")

	// ErrInvalidExecutionMode is returned when an execution mode name is not recognized.
	ErrInvalidExecutionMode = zerr.New("invalid execution mode")

	// ErrNoImplementationFound is returned when no compiler implementation artifacts can be located.
	ErrNoImplementationFound = zerr.New("no compiler implementation found")

	// ErrInvalidArtifact is returned when a toolchain artifact manifest cannot be read or is incomplete.
	ErrInvalidArtifact = zerr.New("invalid toolchain artifact")

	// ErrSharedSymbolShadowed is returned when an implementation tries to define a symbol owned by the shared API scope.
	ErrSharedSymbolShadowed = zerr.New("shared symbol cannot be defined in an isolated scope")

	// ErrScopeSealed is returned when a symbol is defined in a scope after loading finished.
	ErrScopeSealed = zerr.New("scope is sealed")

	// ErrDuplicateProvider is returned when two providers register the same implementation id.
	ErrDuplicateProvider = zerr.New("implementation provider already registered")

	// ErrSymbolNotFound is returned when a symbol cannot be resolved from a scope.
	ErrSymbolNotFound = zerr.New("symbol not found")

	// ErrInvalidToolchainVersion is returned when an artifact declares a version that is not a valid semantic version.
	ErrInvalidToolchainVersion = zerr.New("invalid toolchain version")

	// ErrCancellationUnsupported is returned when cancel is requested against a toolchain that lacks the capability.
	ErrCancellationUnsupported = zerr.New("cancellation is not supported by this toolchain")

	// ErrCompilationCancelled is raised by a compiler service when it observes a cancellation request.
	ErrCompilationCancelled = zerr.New("compilation cancelled")

	// ErrBuildExecutionFailed is returned when at least one module of a build did not succeed.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrStoreCreateFailed is returned when the build record store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create build record store directory")

	// ErrStoreReadFailed is returned when a build record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build record")

	// ErrStoreUnmarshalFailed is returned when a build record cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build record")

	// ErrStoreMarshalFailed is returned when a build record cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build record")

	// ErrStoreWriteFailed is returned when a build record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build record")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the config file fails validation.
	ErrConfigInvalid = zerr.New("invalid config file")

	// ErrConfigNotFound is returned when the config file cannot be found.
	ErrConfigNotFound = zerr.New("could not find kiln.yaml")

	// ErrOutputHashComputationFailed is returned when output hash computation fails.
	ErrOutputHashComputationFailed = zerr.New("failed to compute output hash")

	// ErrWorkerSpawnFailed is returned when the worker process cannot be started.
	ErrWorkerSpawnFailed = zerr.New("failed to spawn worker")

	// ErrWorkerUnavailable is returned when the worker does not respond.
	ErrWorkerUnavailable = zerr.New("worker is not responsive")

	// ErrBarrierWaitFailed is returned when waiting on a rendezvous barrier fails.
	ErrBarrierWaitFailed = zerr.New("failed to wait on rendezvous barrier")
)
