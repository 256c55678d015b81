// Package shell provides the command runner adapter.
package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"go.trai.ch/zerr"

	"github.com/donno/cake/internal/core/ports"
)

// Runner implements ports.Runner using os/exec.
type Runner struct{}

// NewRunner creates the os/exec command runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run implements ports.Runner. The spec's environment is applied over the
// process environment; combined stdout and stderr stream to spec.Output. A
// nonzero exit status comes back as a ports.ExitError.
func (r *Runner) Run(ctx context.Context, spec ports.RunSpec) error {
	if len(spec.Args) == 0 {
		return zerr.New("empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...) //nolint:gosec // script provided command
	cmd.Dir = spec.Dir
	cmd.Env = mergedEnv(spec.Env)
	if spec.Output != nil {
		cmd.Stdout = spec.Output
		cmd.Stderr = spec.Output
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ports.ExitError{Code: exitErr.ExitCode()}
	}
	return zerr.With(zerr.Wrap(err, "failed to run command"), "command", spec.Args[0])
}

func mergedEnv(over map[string]string) []string {
	if len(over) == 0 {
		return nil // inherit
	}
	env := os.Environ()
	for k, v := range over {
		env = append(env, k+"="+v)
	}
	return env
}

var _ ports.Runner = (*Runner)(nil)
