package isolation

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/core/ports"
)

const (
	// APIScopeNodeID is the unique identifier for the shared API scope Graft node.
	APIScopeNodeID graft.ID = "adapter.isolation.api_scope"
	// RegistryNodeID identifies the provider registry node. Implementation
	// packages register it with their providers.
	RegistryNodeID graft.ID = "adapter.isolation.registry"
	// NodeID is the unique identifier for the toolchain loader Graft node.
	NodeID graft.ID = "adapter.isolation.loader"
)

func init() {
	graft.Register(graft.Node[*Scope]{
		ID:        APIScopeNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Scope, error) {
			return NewAPIScope(DefaultPolicy()), nil
		},
	})

	graft.Register(graft.Node[ports.ToolchainLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{APIScopeNodeID, RegistryNodeID},
		Run: func(ctx context.Context) (ports.ToolchainLoader, error) {
			api, err := graft.Dep[*Scope](ctx)
			if err != nil {
				return nil, err
			}
			registry, err := graft.Dep[*Registry](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(registry, api), nil
		},
	})
}
