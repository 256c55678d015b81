// Package wiring registers all graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/donno/cake/internal/adapters/config"
	_ "github.com/donno/cake/internal/adapters/depstore"
	_ "github.com/donno/cake/internal/adapters/fs"
	_ "github.com/donno/cake/internal/adapters/logger"
	_ "github.com/donno/cake/internal/adapters/script"
	_ "github.com/donno/cake/internal/adapters/shell"
	_ "github.com/donno/cake/internal/adapters/telemetry"
	_ "github.com/donno/cake/internal/adapters/watcher"
	// Register app nodes.
	_ "github.com/donno/cake/internal/app"
)
