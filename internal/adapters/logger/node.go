package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the logger Graft node.
	NodeID graft.ID = "adapter.logger"
	// DiagnosticsNodeID is the unique identifier for the diagnostic sink factory Graft node.
	DiagnosticsNodeID graft.ID = "adapter.logger.diagnostics"
)

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			return New(), nil
		},
	})

	graft.Register(graft.Node[ports.DiagnosticRecorderFactory]{
		ID:        DiagnosticsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (ports.DiagnosticRecorderFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			forward, _ := log.(*Logger)
			return func(module string) ports.DiagnosticRecorder {
				return NewDiagnostics(module, forward)
			}, nil
		},
	})
}
