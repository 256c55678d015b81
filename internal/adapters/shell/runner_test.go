package shell_test

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/donno/cake/internal/adapters/shell"
	"github.com/donno/cake/internal/core/ports"
)

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var out strings.Builder
	err := shell.NewRunner().Run(context.Background(), ports.RunSpec{
		Args:   []string{"sh", "-c", "echo hello"},
		Output: &out,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("output = %q, want %q", got, "hello")
	}
}

func TestRunExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	err := shell.NewRunner().Run(context.Background(), ports.RunSpec{
		Args: []string{"sh", "-c", "exit 3"},
	})
	var exit *ports.ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("Run() error = %v, want *ports.ExitError", err)
	}
	if exit.Code != 3 {
		t.Errorf("exit code = %d, want 3", exit.Code)
	}
}

func TestRunAppliesEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var out strings.Builder
	err := shell.NewRunner().Run(context.Background(), ports.RunSpec{
		Args:   []string{"sh", "-c", "echo $CAKE_TEST_VALUE"},
		Env:    map[string]string{"CAKE_TEST_VALUE": "marzipan"},
		Output: &out,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "marzipan" {
		t.Errorf("output = %q, want %q", got, "marzipan")
	}
}
