package app

import "github.com/donno/cake/internal/core/ports"

// Components bundles the resolved application graph for the entry point.
type Components struct {
	App       *App
	Logger    ports.Logger
	Telemetry ports.Telemetry
	Watcher   ports.Watcher
}
