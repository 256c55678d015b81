// Package config loads the project configuration file (cake.yaml): worker
// width, root scripts, and the variants with their tool settings.
package config

import (
	"os"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up in the working
// directory when no explicit path is given.
const DefaultFile = "cake.yaml"

// Config is the parsed project configuration.
type Config struct {
	// Jobs is the default worker pool width; the command line overrides it.
	Jobs int `yaml:"jobs"`
	// Scripts are the root build scripts to execute, relative to the
	// configuration file's directory.
	Scripts []string `yaml:"scripts"`
	// Variants are the build configurations available to this project.
	Variants []VariantConfig `yaml:"variants"`
}

// VariantConfig declares one variant: its keyword axes, whether it is built
// when the command line names no criteria, and its tool settings.
type VariantConfig struct {
	Axes     map[string]string `yaml:"axes"`
	Default  bool              `yaml:"default"`
	Compiler CompilerConfig    `yaml:"compiler"`
}

// CompilerConfig selects and configures the variant's compiler tool.
type CompilerConfig struct {
	// Kind names the compiler; only "dummy" is built in.
	Kind string `yaml:"kind"`
	// Flags are appended to every compile command.
	Flags []string `yaml:"flags"`
}

// Loader reads configuration files.
type Loader struct{}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates the configuration at path. With path "" the
// default file in the working directory is used.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read configuration"), "path", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse configuration"), "path", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, zerr.With(err, "path", path)
	}

	if len(cfg.Scripts) == 0 {
		cfg.Scripts = []string{"build.yaml"}
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Variants) == 0 {
		return zerr.New("configuration declares no variants")
	}
	for i, v := range c.Variants {
		if len(v.Axes) == 0 {
			return zerr.With(zerr.New("variant declares no axes"), "index", i)
		}
	}
	return nil
}
