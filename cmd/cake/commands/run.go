package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scripts...]",
		Short: "Run the build scripts under the selected variants",
		Long: "Run executes the configuration's root build scripts, or the scripts given\n" +
			"as arguments, once under every variant selected by the -k criteria. With no\n" +
			"criteria the configuration's default variants are built.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.components.App.Run(cmd.Context(), c.options(args))
		},
	}
}
