package engine

import (
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
	"github.com/donno/cake/internal/engine/task"
)

// StepRunner is implemented by tools that can turn a script step into a
// running task. The returned task is already started; the script task joins
// on it via CompleteAfter.
type StepRunner interface {
	RunStep(ec *ExecContext, step *domain.Step) (*task.Task, error)
}

// Script is one execution of a script file under one variant. Included
// scripts become child Scripts sharing the root's task, included set, and
// producer table, so a diamond of includes runs each file once and steps in
// any included file can depend on targets produced in another.
type Script struct {
	engine  *Engine
	path    string
	dir     string
	variant *domain.Variant
	task    *task.Task
	root    *Script

	// Root only. Guards included and producers for the whole tree.
	mu        sync.Mutex
	included  map[string]bool
	producers map[string]*task.Task
}

func newScript(e *Engine, path string, variant *domain.Variant) *Script {
	s := &Script{
		engine:    e,
		path:      path,
		dir:       filepath.Dir(path),
		variant:   variant,
		included:  make(map[string]bool),
		producers: make(map[string]*task.Task),
	}
	s.root = s
	return s
}

// Task returns the task covering this script execution and everything it
// spawned.
func (s *Script) Task() *task.Task { return s.task }

// Path returns the script file path.
func (s *Script) Path() string { return s.path }

// Variant returns the variant the script is executing under.
func (s *Script) Variant() *domain.Variant { return s.variant }

// run executes the script's steps in order. Steps that produce tasks are
// joined onto the script task rather than awaited, so independent steps run
// concurrently on the pool.
func (s *Script) run(tools map[string]domain.Tool) error {
	file, err := s.engine.scriptFile(s.path)
	if err != nil {
		return s.engine.BuildFailure("failed to load script '%s': %v", s.path, err)
	}

	ec := &ExecContext{
		engine:  s.engine,
		script:  s,
		variant: s.variant,
		tools:   tools,
	}
	for i := range file.Steps {
		step := expandStep(&file.Steps[i], file.Vars)
		if err := s.runStep(ec, step); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) runStep(ec *ExecContext, step *domain.Step) error {
	switch step.Kind {
	case domain.StepInclude:
		return s.include(ec, step.Script)

	case domain.StepExecute:
		variant, err := s.engine.FindVariant(step.Criteria, s.variant)
		if err != nil {
			return s.engine.BuildFailure("%s: %v", s.path, err)
		}
		child := s.engine.executeFrom(s.task, s.variant, ec.AbsPath(step.Script), variant)
		s.task.CompleteAfter(child)
		return nil

	default:
		name := step.Kind.ToolName()
		tool, ok := ec.tools[name]
		if !ok {
			return s.engine.BuildFailure("%s: %v", s.path,
				zerr.With(domain.ErrUnknownTool, "tool", name))
		}
		runner, ok := tool.(StepRunner)
		if !ok {
			return s.engine.BuildFailure("%s: tool '%s' cannot run '%s' steps",
				s.path, name, step.Kind)
		}
		t, err := runner.RunStep(ec, step)
		if err != nil {
			return err
		}
		if t != nil {
			for _, target := range StepTargets(step) {
				s.registerProducer(ec.AbsPath(target), t)
			}
			s.task.CompleteAfter(t)
		}
		return nil
	}
}

// include runs another script file inline, inside the same task and with the
// same tools. Each file is included at most once per root execution; a
// repeat include is a no-op.
func (s *Script) include(ec *ExecContext, rel string) error {
	path := ec.AbsPath(rel)

	root := s.root
	root.mu.Lock()
	if root.included[path] {
		root.mu.Unlock()
		return nil
	}
	root.included[path] = true
	root.mu.Unlock()

	s.engine.Logger().OutputDebug("script", "Including "+path)
	child := &Script{
		engine:  s.engine,
		path:    path,
		dir:     filepath.Dir(path),
		variant: s.variant,
		task:    s.task,
		root:    root,
	}
	return child.run(ec.tools)
}

func (s *Script) registerProducer(target string, t *task.Task) {
	root := s.root
	root.mu.Lock()
	root.producers[target] = t
	root.mu.Unlock()
}

func (s *Script) producersFor(paths []string) []*task.Task {
	root := s.root
	root.mu.Lock()
	defer root.mu.Unlock()
	var out []*task.Task
	for _, path := range paths {
		if t, ok := root.producers[path]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ExecContext is the explicit execution context handed to tools: which
// engine, script, and variant a step runs under, and the tool set cloned for
// this execution.
type ExecContext struct {
	engine  *Engine
	script  *Script
	variant *domain.Variant
	tools   map[string]domain.Tool
}

// Engine returns the engine for this execution.
func (ec *ExecContext) Engine() *Engine { return ec.engine }

// Script returns the script the current step belongs to.
func (ec *ExecContext) Script() *Script { return ec.script }

// Variant returns the variant the script is executing under.
func (ec *ExecContext) Variant() *domain.Variant { return ec.variant }

// Dir returns the current script's directory, the base for relative paths in
// its steps.
func (ec *ExecContext) Dir() string { return ec.script.dir }

// Logger returns the engine's logger.
func (ec *ExecContext) Logger() ports.Logger { return ec.engine.Logger() }

// Tool returns the named tool from this execution's cloned tool set.
func (ec *ExecContext) Tool(name string) (domain.Tool, error) {
	tool, ok := ec.tools[name]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownTool, "tool", name)
	}
	return tool, nil
}

// AbsPath resolves a path relative to the current script's directory.
func (ec *ExecContext) AbsPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ec.script.dir, path)
}

// NewTask creates a task parented on the current script task, for traceback
// purposes. The caller starts it.
func (ec *ExecContext) NewTask(op func() error) *task.Task {
	return ec.engine.NewTask(ec.script.task, op)
}

// ProducersFor returns the tasks registered as producing any of the given
// paths in this execution. A step that consumes files another step produces
// must StartAfter these.
func (ec *ExecContext) ProducersFor(paths []string) []*task.Task {
	return ec.script.producersFor(paths)
}

// StepTargets collects a step's declared outputs.
func StepTargets(step *domain.Step) []string {
	if step.Target != "" {
		return append([]string{step.Target}, step.Targets...)
	}
	return step.Targets
}

// StepSources collects a step's declared inputs.
func StepSources(step *domain.Step) []string {
	if step.Source != "" {
		return append([]string{step.Source}, step.Sources...)
	}
	return step.Sources
}

// expandStep returns a copy of the step with ${VAR} references substituted
// from the script's vars. The cached step is never mutated; the same script
// file may execute under several variants.
func expandStep(step *domain.Step, vars map[string]string) *domain.Step {
	expand := func(v string) string {
		return os.Expand(v, func(name string) string { return vars[name] })
	}
	expandAll := func(vs []string) []string {
		if vs == nil {
			return nil
		}
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = expand(v)
		}
		return out
	}

	out := &domain.Step{
		Kind:     step.Kind,
		Script:   expand(step.Script),
		Criteria: step.Criteria,
		Args:     expandAll(step.Args),
		Source:   expand(step.Source),
		Sources:  expandAll(step.Sources),
		Target:   expand(step.Target),
		Targets:  expandAll(step.Targets),
	}
	if step.Env != nil {
		out.Env = make(map[string]string, len(step.Env))
		for k, v := range step.Env {
			out.Env[k] = expand(v)
		}
	}
	return out
}
