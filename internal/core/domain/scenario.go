package domain

// Scenario is a fully loaded harness configuration: the declared modules and
// how they are compiled.
type Scenario struct {
	// Path is the configuration file the scenario was loaded from.
	Path string
	// Graph holds the declared modules below the scenario root.
	Graph *ModuleGraph
	// Mode is the execution mode of every compilation in the scenario.
	Mode ExecutionMode
	// Artifacts locate the compiler toolchain. Empty means the ambient toolchain path.
	Artifacts []string
	// MetricsTextfile optionally names a file metrics are written to after each build.
	MetricsTextfile string
}
