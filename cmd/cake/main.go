// Package main is the entry point for the cake build tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"

	"github.com/donno/cake/cmd/cake/commands"
	"github.com/donno/cake/internal/app"
	"github.com/donno/cake/internal/core/domain"
	_ "github.com/donno/cake/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// The logger is not available if initialization failed.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = components.Telemetry.Close() }()

	cli := commands.New(components)
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrBuildFailed) {
			// Already reported through the logger with counts.
			return 1
		}
		components.Logger.OutputError(err.Error())
		return 1
	}
	return 0
}
