package app

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/donno/cake/internal/adapters/config" //nolint:depguard // Wired in app layer
	"github.com/donno/cake/internal/adapters/depstore"
	"github.com/donno/cake/internal/adapters/fs"
	"github.com/donno/cake/internal/adapters/logger"
	"github.com/donno/cake/internal/adapters/script"
	"github.com/donno/cake/internal/adapters/shell"
	"github.com/donno/cake/internal/adapters/telemetry"
	"github.com/donno/cake/internal/adapters/watcher"
	"github.com/donno/cake/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the components graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			fs.NodeID,
			depstore.NodeID,
			script.NodeID,
			shell.NodeID,
			telemetry.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.NodeID,
			watcher.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	configLoader, err := graft.Dep[*config.Loader](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	digester, err := graft.Dep[ports.Digester](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.DependencyStore](ctx)
	if err != nil {
		return nil, err
	}
	scriptLoader, err := graft.Dep[ports.ScriptLoader](ctx)
	if err != nil {
		return nil, err
	}
	runner, err := graft.Dep[ports.Runner](ctx)
	if err != nil {
		return nil, err
	}
	tel, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	return New(configLoader, log, digester, store, scriptLoader, runner, tel), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tel, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}
	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{
		App:       application,
		Logger:    log,
		Telemetry: tel,
		Watcher:   w,
	}, nil
}
