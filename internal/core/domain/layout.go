package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal workspace directory.
	KilnDirName = ".kiln"

	// ModulesDirName is the name of the directory holding per-module build directories.
	ModulesDirName = "modules"

	// RecordsDirName is the name of the build record store directory.
	RecordsDirName = "records"

	// WorkerDirName is the name of the default worker working directory.
	WorkerDirName = "worker"

	// OutputDirName is the per-module class output directory.
	OutputDirName = "out"

	// IncrementalDirName is the per-module incremental working directory.
	IncrementalDirName = "ic"

	// SnapshotFileName is the conventional name of the incremental snapshot.
	SnapshotFileName = "shrunk.bin"

	// ConfigFileName is the name of the harness configuration file.
	ConfigFileName = "kiln.yaml"

	// ArtifactManifestName is the name of the manifest carried by every toolchain artifact.
	ArtifactManifestName = "kiln-artifact.yaml"

	// ArtifactNamePrefix is the prefix recognized by the fallback toolchain scan.
	ArtifactNamePrefix = "kiln-impl-"

	// ToolchainPathEnv names the environment variable holding the ambient toolchain path.
	ToolchainPathEnv = "KILN_TOOLCHAIN_PATH"

	// WorkerSocketName is the name of the worker's Unix domain socket.
	WorkerSocketName = "worker.sock"

	// WorkerPIDName is the name of the worker's PID file.
	WorkerPIDName = "worker.pid"

	// WorkerLogName is the name of the worker's log file.
	WorkerLogName = "worker.log"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600

	// SocketPerm is the permission applied to the worker socket (rw-------).
	SocketPerm = 0o600
)

// DefaultKilnPath returns the default root directory for kiln metadata.
func DefaultKilnPath() string {
	return KilnDirName
}

// DefaultRecordsPath returns the default path for the build record store.
// It joins .kiln and records.
func DefaultRecordsPath() string {
	return filepath.Join(KilnDirName, RecordsDirName)
}

// DefaultModulePath returns the default build directory of a module.
func DefaultModulePath(root, module string) string {
	return filepath.Join(root, KilnDirName, ModulesDirName, module)
}

// DefaultOutputDir returns the default class output directory of a module.
func DefaultOutputDir(root, module string) string {
	return filepath.Join(DefaultModulePath(root, module), OutputDirName)
}

// DefaultIncrementalDir returns the default incremental working directory of a module.
func DefaultIncrementalDir(root, module string) string {
	return filepath.Join(DefaultModulePath(root, module), IncrementalDirName)
}

// DefaultWorkerDir returns the default worker working directory.
func DefaultWorkerDir(root string) string {
	return filepath.Join(root, KilnDirName, WorkerDirName)
}

// SnapshotPath returns the snapshot file inside an incremental working directory.
func SnapshotPath(incrementalDir string) string {
	return filepath.Join(incrementalDir, SnapshotFileName)
}

// WorkerSocketPath returns the socket path for a worker working directory.
func WorkerSocketPath(workDir string) string {
	return filepath.Join(workDir, WorkerSocketName)
}

// WorkerPIDPath returns the PID file path for a worker working directory.
func WorkerPIDPath(workDir string) string {
	return filepath.Join(workDir, WorkerPIDName)
}

// WorkerLogPath returns the log file path for a worker working directory.
func WorkerLogPath(workDir string) string {
	return filepath.Join(workDir, WorkerLogName)
}
