package config

import (
	"context"

	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "adapter.config"

func init() {
	graft.Register(graft.Node[*Loader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Loader, error) {
			return NewLoader(), nil
		},
	})
}
