package script

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/donno/cake/internal/core/ports"
)

const NodeID graft.ID = "adapter.script_loader"

func init() {
	graft.Register(graft.Node[ports.ScriptLoader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.ScriptLoader, error) {
			return NewLoader(), nil
		},
	})
}
