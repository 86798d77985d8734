package refc

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/isolation"
)

func init() {
	graft.Register(graft.Node[*isolation.Registry]{
		ID:        isolation.RegistryNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*isolation.Registry, error) {
			return isolation.NewRegistry(NewProvider())
		},
	})
}
