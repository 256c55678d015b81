// Package app implements the application layer for cake: loading the project
// configuration, assembling variants and tools, and driving build and watch
// invocations through the engine.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/adapters/config"
	"github.com/donno/cake/internal/adapters/watcher"
	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
	"github.com/donno/cake/internal/engine"
	"github.com/donno/cake/internal/engine/task"
	"github.com/donno/cake/internal/tools"
)

// debounceWindow is the quiet period before a watch-mode rebuild.
const debounceWindow = 500 * time.Millisecond

// App holds the long-lived collaborators shared by every build invocation.
// The engine itself is created fresh per invocation; only the script loader's
// checksum cache carries over between watch-mode runs.
type App struct {
	configLoader *config.Loader
	logger       ports.Logger
	digester     ports.Digester
	store        ports.DependencyStore
	scriptLoader ports.ScriptLoader
	runner       ports.Runner
	telemetry    ports.Telemetry
}

// New creates an App.
func New(
	configLoader *config.Loader,
	logger ports.Logger,
	digester ports.Digester,
	store ports.DependencyStore,
	scriptLoader ports.ScriptLoader,
	runner ports.Runner,
	telemetry ports.Telemetry,
) *App {
	return &App{
		configLoader: configLoader,
		logger:       logger,
		digester:     digester,
		store:        store,
		scriptLoader: scriptLoader,
		runner:       runner,
		telemetry:    telemetry,
	}
}

// Options are the per-invocation settings from the command line.
type Options struct {
	// ConfigPath is the configuration file, or "" for cake.yaml.
	ConfigPath string
	// Criteria are "axis=value" pairs selecting the variants to build. Empty
	// means the configuration's default variants.
	Criteria []string
	// Scripts overrides the configuration's root scripts.
	Scripts []string
	// Force rebuilds every target regardless of recorded state.
	Force bool
	// Jobs overrides the worker pool width; zero uses the configuration,
	// falling back to the CPU count.
	Jobs int
	// Debug lists the debug components to enable, e.g. "reason", "script",
	// "stack".
	Debug []string
}

// Run performs one build invocation and reports the summary. Failures inside
// the build are logged where they happen; the returned error is
// domain.ErrBuildFailed so callers exit nonzero without double-reporting.
func (a *App) Run(ctx context.Context, opts Options) error {
	for _, component := range opts.Debug {
		a.logger.EnableDebug(component)
	}

	cfg, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	baseDir, err := configDir(opts.ConfigPath)
	if err != nil {
		return err
	}

	start := time.Now()
	eng := engine.New(engine.Config{
		Logger:     a.logger,
		Digester:   a.digester,
		Store:      a.store,
		Loader:     a.scriptLoader,
		Telemetry:  a.telemetry,
		Jobs:       jobs(opts, cfg),
		ForceBuild: opts.Force,
		Context:    ctx,
	})

	if err := a.registerVariants(eng, cfg); err != nil {
		return err
	}
	selected, err := a.selectVariants(eng, opts.Criteria)
	if err != nil {
		return err
	}

	scripts := cfg.Scripts
	if len(opts.Scripts) > 0 {
		scripts = opts.Scripts
	}

	var roots []*task.Task
	for _, variant := range selected {
		for _, script := range scripts {
			path := script
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			roots = append(roots, eng.Execute(path, variant))
		}
	}

	failed := false
	for _, root := range roots {
		if err := root.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed = true
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if failed || a.logger.ErrorCount() > 0 {
		a.logger.OutputInfo(fmt.Sprintf("Build failed in %s: %d errors, %d warnings.",
			elapsed, a.logger.ErrorCount(), a.logger.WarningCount()))
		return domain.ErrBuildFailed
	}
	a.logger.OutputInfo(fmt.Sprintf("Build succeeded in %s: %d warnings.",
		elapsed, a.logger.WarningCount()))
	return nil
}

// Watch runs one build, then rebuilds whenever files under the configuration
// directory change, until the context is cancelled. Each rebuild gets a fresh
// engine; parsed scripts are reused through the loader's checksum cache.
func (a *App) Watch(ctx context.Context, opts Options, w ports.Watcher) error {
	if err := a.Run(ctx, opts); err != nil && ctx.Err() == nil {
		// First build failing is not fatal in watch mode; keep watching.
		a.logger.OutputInfo("Watching for changes...")
	}

	baseDir, err := configDir(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := w.Start(ctx, baseDir); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}
	defer func() { _ = w.Stop() }()

	rebuilds := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(debounceWindow, func(paths []string) {
		select {
		case rebuilds <- paths:
		default:
			// A rebuild is already queued; the next run stats everything
			// fresh anyway.
		}
	})

	go func() {
		for event := range w.Events() {
			if event.Operation == ports.OpWrite || event.Operation == ports.OpCreate ||
				event.Operation == ports.OpRemove || event.Operation == ports.OpRename {
				debouncer.Add(event.Path)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case paths := <-rebuilds:
			a.logger.OutputInfo(fmt.Sprintf("Changed: %d files, rebuilding.", len(paths)))
			if err := a.Run(ctx, opts); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// registerVariants builds the variant set declared in the configuration and
// registers each with the engine.
func (a *App) registerVariants(eng *engine.Engine, cfg *config.Config) error {
	for _, vc := range cfg.Variants {
		variant := domain.NewVariant(vc.Axes)
		variant.Tools["shell"] = tools.NewShellTool(a.runner)
		variant.Tools["filesys"] = tools.NewFileSysTool()

		compiler, err := newCompilerTool(vc.Compiler, a.runner)
		if err != nil {
			return zerr.With(err, "variant", variant.String())
		}
		variant.Tools["compiler"] = compiler

		if err := eng.AddVariant(variant, vc.Default); err != nil {
			return err
		}
	}
	return nil
}

func newCompilerTool(cfg config.CompilerConfig, runner ports.Runner) (*tools.CompilerTool, error) {
	switch cfg.Kind {
	case "", "dummy":
		tool := tools.NewCompilerTool(tools.DummyCompiler{}, nil, true)
		tool.Flags = cfg.Flags
		return tool, nil
	default:
		return nil, zerr.With(zerr.New("unknown compiler kind"), "kind", cfg.Kind)
	}
}

// selectVariants resolves the command-line criteria to the variants to build,
// or returns the defaults when no criteria were given.
func (a *App) selectVariants(eng *engine.Engine, pairs []string) ([]*domain.Variant, error) {
	if len(pairs) == 0 {
		defaults := eng.DefaultVariants()
		if len(defaults) == 0 {
			return nil, zerr.New("no default variants configured; pass -k axis=value")
		}
		return defaults, nil
	}

	criteria, ok := domain.ParseCriteria(pairs)
	if !ok {
		return nil, zerr.With(zerr.New("criteria must be axis=value pairs"), "criteria", fmt.Sprint(pairs))
	}
	var selected []*domain.Variant
	for v := range eng.FindAllVariants(criteria) {
		selected = append(selected, v)
	}
	if len(selected) == 0 {
		return nil, zerr.With(domain.ErrNoSuchVariant, "criteria", fmt.Sprint(pairs))
	}
	return selected, nil
}

func jobs(opts Options, cfg *config.Config) int {
	switch {
	case opts.Jobs > 0:
		return opts.Jobs
	case cfg.Jobs > 0:
		return cfg.Jobs
	default:
		return runtime.NumCPU()
	}
}

func configDir(configPath string) (string, error) {
	if configPath == "" {
		configPath = config.DefaultFile
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve configuration path")
	}
	return filepath.Dir(abs), nil
}
