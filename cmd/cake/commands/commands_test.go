package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donno/cake/cmd/cake/commands"
	"github.com/donno/cake/internal/adapters/config"
	"github.com/donno/cake/internal/adapters/depstore"
	adapterfs "github.com/donno/cake/internal/adapters/fs"
	"github.com/donno/cake/internal/adapters/logger"
	scriptloader "github.com/donno/cake/internal/adapters/script"
	"github.com/donno/cake/internal/adapters/shell"
	"github.com/donno/cake/internal/adapters/telemetry"
	"github.com/donno/cake/internal/app"
)

func newComponents(t *testing.T) (*app.Components, *strings.Builder) {
	t.Helper()
	var buf strings.Builder
	a := app.New(
		config.NewLoader(),
		logger.NewWithWriter(&buf),
		adapterfs.NewDigester(),
		depstore.NewStore(),
		scriptloader.NewLoader(),
		shell.NewRunner(),
		telemetry.NewNoOp(),
	)
	return &app.Components{App: a, Logger: logger.NewWithWriter(&buf)}, &buf
}

func TestVersionCommand(t *testing.T) {
	components, _ := newComponents(t)
	cli := commands.New(components)
	cli.SetArgs([]string{"version"})
	require.NoError(t, cli.Execute(context.Background()))
}

func TestRunCommandBuildsProject(t *testing.T) {
	dir := t.TempDir()
	write := func(path, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644))
	}
	write("cake.yaml", `
variants:
  - axes: {mode: debug}
    default: true
    compiler:
      kind: dummy
`)
	write("build.yaml", `
steps:
  - compile:
      source: src.c
      target: out.o
`)
	write("src.c", "int main;\n")

	components, buf := newComponents(t)
	cli := commands.New(components)
	cli.SetArgs([]string{"run", "--config", filepath.Join(dir, "cake.yaml")})
	require.NoError(t, cli.Execute(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "out.o"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Build succeeded")
}

func TestRunCommandUnknownFlag(t *testing.T) {
	components, _ := newComponents(t)
	cli := commands.New(components)
	cli.SetArgs([]string{"run", "--no-such-flag"})
	require.Error(t, cli.Execute(context.Background()))
}
