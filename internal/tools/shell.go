// Package tools implements the step runners installed into variants: the
// shell tool, the file system tool, and the compiler tool. Every tool is
// cloned per script execution, so per-execution mutation of tool settings
// never leaks between scripts or variants.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
	"github.com/donno/cake/internal/engine"
	"github.com/donno/cake/internal/engine/task"
)

// ShellTool runs external commands declared by shell steps, skipping commands
// whose recorded targets are already up to date.
type ShellTool struct {
	runner ports.Runner

	// Env is extra environment applied to every command this tool runs,
	// under the step's own env.
	Env map[string]string
}

// NewShellTool creates a shell tool executing commands through runner.
func NewShellTool(runner ports.Runner) *ShellTool {
	return &ShellTool{runner: runner, Env: make(map[string]string)}
}

// Clone implements domain.Tool.
func (t *ShellTool) Clone() domain.Tool {
	clone := NewShellTool(t.runner)
	for k, v := range t.Env {
		clone.Env[k] = v
	}
	return clone
}

// RunStep schedules the step's command as a task ordered after the producers
// of its declared sources.
func (t *ShellTool) RunStep(ec *engine.ExecContext, step *domain.Step) (*task.Task, error) {
	if len(step.Args) == 0 {
		return nil, ec.Engine().BuildFailure("%s: shell step has no args", ec.Script().Path())
	}

	sources := absAll(ec, engine.StepSources(step))
	targets := absAll(ec, engine.StepTargets(step))
	env := mergeEnv(t.Env, step.Env)
	args := step.Args

	run := ec.NewTask(func() error {
		return t.execute(ec, args, sources, targets, env)
	})
	run.StartAfter(ec.ProducersFor(sources)...)
	run.Start()
	return run, nil
}

func (t *ShellTool) execute(ec *engine.ExecContext, args, sources, targets []string, env map[string]string) error {
	e := ec.Engine()
	command := strings.Join(args, " ")

	if len(targets) > 0 {
		info, reason, err := e.CheckDependencyInfo(targets[0], args)
		if err != nil {
			return err
		}
		if reason == "" {
			info.PrimeFileDigestCache(e)
			vertex := e.Telemetry().Record(command)
			vertex.Cached()
			vertex.Complete(nil)
			return nil
		}
		e.Logger().OutputDebug("reason", fmt.Sprintf("Rebuilding '%s' because %s.", targets[0], reason))
	}

	e.Logger().OutputInfo(command)
	vertex := e.Telemetry().Record(command)
	err := t.runner.Run(e.Context(), ports.RunSpec{
		Args:   args,
		Dir:    ec.Dir(),
		Env:    env,
		Output: vertex.Stdout(),
	})
	vertex.Complete(err)
	if err != nil {
		var exit *ports.ExitError
		if errors.As(err, &exit) {
			return e.BuildFailure("%s exited with code %d", args[0], exit.Code)
		}
		return err
	}

	for _, target := range targets {
		e.NotifyFileChanged(target)
	}
	if len(targets) > 0 {
		info, err := e.NewDependencyInfo(targets, args, sources, true)
		if err != nil {
			return err
		}
		return e.StoreDependencyInfo(info)
	}
	return nil
}

func absAll(ec *engine.ExecContext, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ec.AbsPath(p)
	}
	return out
}

func mergeEnv(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}
