package app

import (
	"go.trai.ch/kiln/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App          *App
	Logger       ports.Logger
	ConfigLoader ports.ConfigLoader
	Toolchains   ports.ToolchainLoader
	Connector    ports.WorkerConnector
	Store        ports.BuildRecordStore
	Hasher       ports.OutputHasher
}
