package domain

// StepKind identifies what a script step does.
type StepKind string

const (
	// StepInclude executes another script file inline, in the same variant
	// and inclusion tree.
	StepInclude StepKind = "include"
	// StepExecute runs another script under a (possibly different) variant.
	StepExecute StepKind = "execute"
	// StepShell runs an external command with declared sources and targets.
	StepShell StepKind = "shell"
	// StepCopy copies a file when the target is missing or older.
	StepCopy StepKind = "copy"
	// StepCompile compiles one source into one object file.
	StepCompile StepKind = "compile"
	// StepLibrary archives object files into a library.
	StepLibrary StepKind = "library"
	// StepProgram links object files and libraries into a program.
	StepProgram StepKind = "program"
)

// ToolName returns the name of the variant tool that runs this step kind, or
// "" for the structural steps the script executes itself.
func (k StepKind) ToolName() string {
	switch k {
	case StepShell:
		return "shell"
	case StepCopy:
		return "filesys"
	case StepCompile, StepLibrary, StepProgram:
		return "compiler"
	}
	return ""
}

// Step is one parsed entry of a script's steps list. Which fields are
// populated depends on Kind; the loader validates shape at parse time.
type Step struct {
	Kind StepKind

	// Script is the path of the script to include or execute, relative to
	// the including script's directory.
	Script string
	// Criteria selects the variant for an execute step, resolved against the
	// current variant as base.
	Criteria Criteria

	// Args is the argument vector of a shell step.
	Args []string
	// Env is extra environment for a shell step.
	Env map[string]string

	// Source is the single input of a copy or compile step.
	Source string
	// Sources are the inputs of a shell, library or program step, or the
	// additional tracked inputs (headers) of a compile step.
	Sources []string
	// Target is the single output of a copy, compile, library or program step.
	Target string
	// Targets are the outputs of a shell step.
	Targets []string
}

// ScriptFile is the compiled form of one build-script file: its local
// variable namespace and ordered steps. The engine caches one ScriptFile per
// absolute path for the duration of an invocation.
type ScriptFile struct {
	// Path is the absolute path the file was loaded from.
	Path string
	// Checksum is the xxhash64 of the file's bytes at load time, used by the
	// cross-invocation cache to detect edits between watch-mode runs.
	Checksum uint64
	// Vars is the script-local variable namespace for ${VAR} expansion. It is
	// never inherited by included scripts.
	Vars map[string]string
	// Steps are the script's steps in execution order.
	Steps []Step
}
