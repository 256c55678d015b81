package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/domain"
	"github.com/donno/cake/internal/core/ports"
	"github.com/donno/cake/internal/engine"
	"github.com/donno/cake/internal/engine/task"
)

// Compiler produces the argument vectors for the compile-family steps. The
// vectors are both the commands to run and the staleness keys recorded in
// dependency records, so changing a flag rebuilds what it affects.
type Compiler interface {
	// CompileArgs returns the command compiling source into an object file.
	CompileArgs(source, target string) []string
	// LibraryArgs returns the command archiving objects into a library.
	LibraryArgs(objects []string, target string) []string
	// ProgramArgs returns the command linking objects into a program.
	ProgramArgs(objects []string, target string) []string
}

// DummyCompiler is a compiler that performs no real compilation: each command
// writes its own argument vector to the target file. It exists so build
// scripts and the dependency machinery can be exercised without a toolchain
// installed.
type DummyCompiler struct{}

// CompileArgs implements Compiler.
func (DummyCompiler) CompileArgs(source, target string) []string {
	return []string{"dcc", "-c", source, "-o", target}
}

// LibraryArgs implements Compiler.
func (DummyCompiler) LibraryArgs(objects []string, target string) []string {
	return append([]string{"dar", "-o", target}, objects...)
}

// ProgramArgs implements Compiler.
func (DummyCompiler) ProgramArgs(objects []string, target string) []string {
	return append([]string{"dld", "-o", target}, objects...)
}

// CompilerTool runs compile, library and program steps through a Compiler.
// Flags mutated on the tool affect only the current execution's clone.
type CompilerTool struct {
	compiler Compiler
	runner   ports.Runner

	// Flags are extra arguments appended to every compile command.
	Flags []string
	// Simulate skips the runner and writes the argument vector to the target
	// instead, which is all the dummy compiler needs.
	Simulate bool
}

// NewCompilerTool creates a compiler tool. With a DummyCompiler pass
// simulate=true and a nil runner.
func NewCompilerTool(compiler Compiler, runner ports.Runner, simulate bool) *CompilerTool {
	return &CompilerTool{compiler: compiler, runner: runner, Simulate: simulate}
}

// Clone implements domain.Tool.
func (t *CompilerTool) Clone() domain.Tool {
	clone := NewCompilerTool(t.compiler, t.runner, t.Simulate)
	clone.Flags = append([]string(nil), t.Flags...)
	return clone
}

// RunStep schedules the step's compile, archive or link command as a task
// ordered after the producers of its inputs.
func (t *CompilerTool) RunStep(ec *engine.ExecContext, step *domain.Step) (*task.Task, error) {
	var args, deps []string
	target := ec.AbsPath(step.Target)

	switch step.Kind {
	case domain.StepCompile:
		if step.Source == "" || step.Target == "" {
			return nil, ec.Engine().BuildFailure("%s: compile step needs source and target", ec.Script().Path())
		}
		source := ec.AbsPath(step.Source)
		args = append(t.compiler.CompileArgs(source, target), t.Flags...)
		// Extra sources are tracked inputs (headers) that do not appear in
		// the command line.
		deps = append([]string{source}, absAll(ec, step.Sources)...)

	case domain.StepLibrary, domain.StepProgram:
		if len(step.Sources) == 0 || step.Target == "" {
			return nil, ec.Engine().BuildFailure("%s: %s step needs sources and target", ec.Script().Path(), step.Kind)
		}
		objects := absAll(ec, step.Sources)
		if step.Kind == domain.StepLibrary {
			args = t.compiler.LibraryArgs(objects, target)
		} else {
			args = t.compiler.ProgramArgs(objects, target)
		}
		deps = objects

	default:
		return nil, zerr.With(domain.ErrUnknownTool, "step", string(step.Kind))
	}

	run := ec.NewTask(func() error {
		return t.build(ec, args, deps, target)
	})
	run.StartAfter(ec.ProducersFor(deps)...)
	run.Start()
	return run, nil
}

func (t *CompilerTool) build(ec *engine.ExecContext, args, deps []string, target string) error {
	e := ec.Engine()
	command := strings.Join(args, " ")

	info, reason, err := e.CheckDependencyInfo(target, args)
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
	e.Logger().OutputDebug("reason", fmt.Sprintf("Rebuilding '%s' because %s.", target, reason))

	e.Logger().OutputInfo(command)
	vertex := e.Telemetry().Record(command)
	if t.Simulate {
		err = writeSimulated(target, command)
	} else {
		err = t.runner.Run(e.Context(), ports.RunSpec{Args: args, Dir: ec.Dir(), Output: vertex.Stdout()})
	}
	vertex.Complete(err)
	if err != nil {
		var exit *ports.ExitError
		if errors.As(err, &exit) {
			return e.BuildFailure("%s exited with code %d", args[0], exit.Code)
		}
		return err
	}
	e.NotifyFileChanged(target)

	info, err = e.NewDependencyInfo([]string{target}, args, deps, true)
	if err != nil {
		return err
	}
	return e.StoreDependencyInfo(info)
}

func writeSimulated(target, command string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return zerr.Wrap(err, "failed to create target directory")
	}
	return os.WriteFile(target, []byte(command+"\n"), 0o644)
}
