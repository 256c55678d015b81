package shell

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/donno/cake/internal/core/ports"
)

const NodeID graft.ID = "adapter.runner"

func init() {
	graft.Register(graft.Node[ports.Runner]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Runner, error) {
			return NewRunner(), nil
		},
	})
}
