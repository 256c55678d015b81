package ports

import (
	"context"
	"fmt"
	"io"
)

// RunSpec describes one external command invocation.
type RunSpec struct {
	// Args is the argument vector; Args[0] is the command.
	Args []string
	// Dir is the working directory, or "" for the current directory.
	Dir string
	// Env is extra environment applied over the process environment.
	Env map[string]string
	// Output receives combined stdout and stderr, or nil to discard.
	Output io.Writer
}

// ExitError is returned by Runner implementations when the command ran to
// completion but exited with a nonzero status.
type ExitError struct {
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runner executes external commands for the shell tool.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run executes the command and blocks until it exits. A nonzero exit
	// status is returned as an error carrying the exit code.
	Run(ctx context.Context, spec RunSpec) error
}
