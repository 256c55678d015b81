package depstore

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/donno/cake/internal/core/ports"
)

const NodeID graft.ID = "adapter.depstore"

func init() {
	graft.Register(graft.Node[ports.DependencyStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.DependencyStore, error) {
			return NewStore(), nil
		},
	})
}
