package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [scripts...]",
		Short: "Build, then rebuild whenever source files change",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.components.App.Watch(cmd.Context(), c.options(args), c.components.Watcher)
		},
	}
}
