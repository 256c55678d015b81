// Package commands implements the CLI commands for the cake build tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/donno/cake/internal/app"
)

// CLI is the command line interface for cake.
type CLI struct {
	components *app.Components
	rootCmd    *cobra.Command

	configPath string
	criteria   []string
	debug      []string
	force      bool
	jobs       int
}

// New creates a CLI over the resolved application components.
func New(components *app.Components) *CLI {
	c := &CLI{components: components}

	c.rootCmd = &cobra.Command{
		Use:           "cake",
		Short:         "An incremental build tool driven by declarative build scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to configuration file (default cake.yaml)")
	flags.StringSliceVarP(&c.criteria, "keyword", "k", nil, "variant criteria as axis=value pairs; value may be 'all' or a comma list")
	flags.StringSliceVarP(&c.debug, "debug", "d", nil, "debug components to enable (reason, script, stack)")
	flags.BoolVarP(&c.force, "force", "f", false, "rebuild all targets regardless of recorded state")
	flags.IntVarP(&c.jobs, "jobs", "j", 0, "worker pool width (default from configuration, then CPU count)")

	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) options(scripts []string) app.Options {
	return app.Options{
		ConfigPath: c.configPath,
		Criteria:   c.criteria,
		Scripts:    scripts,
		Force:      c.force,
		Jobs:       c.jobs,
		Debug:      c.debug,
	}
}
