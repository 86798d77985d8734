package logger

import (
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Diagnostics captures the messages a compiler emits during one compilation.
// Every message is also forwarded to the logger at debug level, tagged with the module.
type Diagnostics struct {
	mu      sync.Mutex
	module  string
	entries []domain.Diagnostic
	forward *Logger
}

var _ ports.DiagnosticSink = (*Diagnostics)(nil)

// NewDiagnostics creates a sink for the given module. forward may be nil.
func NewDiagnostics(module string, forward *Logger) *Diagnostics {
	return &Diagnostics{module: module, forward: forward}
}

// Report records a compiler message.
func (d *Diagnostics) Report(level domain.LogLevel, msg string) {
	d.mu.Lock()
	d.entries = append(d.entries, domain.Diagnostic{Level: level, Message: msg})
	d.mu.Unlock()

	if d.forward != nil {
		d.forward.Log(domain.LogLevelDebug, msg, ModuleKey, d.module, "level", level.String())
	}
}

// Entries returns the captured diagnostics in emission order.
func (d *Diagnostics) Entries() []domain.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.entries)
}
