package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donno/cake/internal/adapters/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
jobs: 4
scripts: [src/build.yaml]
variants:
  - axes: {platform: linux, mode: debug}
    default: true
    compiler:
      kind: dummy
      flags: [-g]
  - axes: {platform: linux, mode: release}
    compiler:
      kind: dummy
      flags: [-O2]
`)
	cfg, err := config.NewLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Jobs)
	require.Equal(t, []string{"src/build.yaml"}, cfg.Scripts)
	require.Len(t, cfg.Variants, 2)
	require.True(t, cfg.Variants[0].Default)
	require.Equal(t, "debug", cfg.Variants[0].Axes["mode"])
	require.Equal(t, []string{"-O2"}, cfg.Variants[1].Compiler.Flags)
}

func TestLoadDefaultsScripts(t *testing.T) {
	path := writeConfig(t, `
variants:
  - axes: {mode: debug}
`)
	cfg, err := config.NewLoader().Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"build.yaml"}, cfg.Scripts)
}

func TestLoadRejectsNoVariants(t *testing.T) {
	path := writeConfig(t, "jobs: 2\n")
	_, err := config.NewLoader().Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no variants")
}

func TestLoadRejectsEmptyAxes(t *testing.T) {
	path := writeConfig(t, "variants:\n  - default: true\n")
	_, err := config.NewLoader().Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
