package config

import "time"

// Kilnfile represents the structure of the kiln.yaml configuration file.
type Kilnfile struct {
	Version   string       `yaml:"version" validate:"omitempty,oneof=1"`
	Root      string       `yaml:"root"`
	Toolchain ToolchainDTO `yaml:"toolchain"`
	Execution ExecutionDTO `yaml:"execution"`
	Metrics   MetricsDTO   `yaml:"metrics"`
	Modules   []ModuleDTO  `yaml:"modules" validate:"required,min=1,unique=Name,dive"`
}

// ToolchainDTO locates the compiler implementation.
type ToolchainDTO struct {
	Artifacts []string `yaml:"artifacts" validate:"dive,required"`
}

// ExecutionDTO selects the execution mode.
type ExecutionDTO struct {
	Mode          string        `yaml:"mode" validate:"omitempty,oneof=in-process worker"`
	ShutdownDelay time.Duration `yaml:"shutdownDelay" validate:"gte=0"`
	WorkDir       string        `yaml:"workDir"`
	Flags         []string      `yaml:"flags"`
}

// MetricsDTO configures metrics output.
type MetricsDTO struct {
	Textfile string `yaml:"textfile"`
}

// ModuleDTO represents a module declaration. Modules are declared as a list
// because declaration order determines build order among independent modules.
type ModuleDTO struct {
	Name           string   `yaml:"name" validate:"required"`
	Sources        []string `yaml:"sources"`
	Include        string   `yaml:"include"`
	DependsOn      []string `yaml:"dependsOn" validate:"dive,required"`
	OutputDir      string   `yaml:"outputDir"`
	IncrementalDir string   `yaml:"incrementalDir"`
}
