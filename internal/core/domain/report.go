package domain

import "time"

// BuildRecord is the persisted summary of a module's last build.
type BuildRecord struct {
	Module           string    `json:"module,omitzero"`
	Outcome          Outcome   `json:"outcome,omitzero"`
	SnapshotPath     string    `json:"snapshot_path,omitzero"`
	OutputHash       string    `json:"output_hash,omitzero"`
	ToolchainVersion string    `json:"toolchain_version,omitzero"`
	Revision         uint64    `json:"revision,omitzero"`
	Timestamp        time.Time `json:"timestamp,omitzero"`
}

// ModuleResult is one module's entry in a build report.
type ModuleResult struct {
	Module      string
	Outcome     Outcome
	Diagnostics []Diagnostic
	OutputHash  string
	Duration    time.Duration
}

// BuildReport aggregates the per-module results of one build, in build order.
type BuildReport struct {
	Results []ModuleResult
	index   map[string]int
}

// NewBuildReport creates an empty report.
func NewBuildReport() *BuildReport {
	return &BuildReport{index: make(map[string]int)}
}

// Add records a module result, replacing an earlier result for the same module.
func (r *BuildReport) Add(res ModuleResult) {
	if i, ok := r.index[res.Module]; ok {
		r.Results[i] = res
		return
	}
	r.index[res.Module] = len(r.Results)
	r.Results = append(r.Results, res)
}

// Result returns the result of a module, if it was built.
func (r *BuildReport) Result(module string) (ModuleResult, bool) {
	i, ok := r.index[module]
	if !ok {
		return ModuleResult{}, false
	}
	return r.Results[i], true
}

// Outcomes returns the outcome of every built module.
func (r *BuildReport) Outcomes() map[string]Outcome {
	out := make(map[string]Outcome, len(r.Results))
	for _, res := range r.Results {
		out[res.Module] = res.Outcome
	}
	return out
}

// Modules returns the built module names in build order.
func (r *BuildReport) Modules() []string {
	names := make([]string, len(r.Results))
	for i, res := range r.Results {
		names[i] = res.Module
	}
	return names
}

// Succeeded reports whether every built module succeeded.
func (r *BuildReport) Succeeded() bool {
	for _, res := range r.Results {
		if !res.Outcome.IsSuccess() {
			return false
		}
	}
	return true
}
