package worker

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the worker connector Graft node.
const NodeID graft.ID = "adapter.worker"

func init() {
	graft.Register(graft.Node[ports.WorkerConnector]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.WorkerConnector, error) {
			return NewConnector()
		},
	})
}
