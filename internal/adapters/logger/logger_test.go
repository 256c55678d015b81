package logger_test

import (
	"strings"
	"testing"

	"github.com/donno/cake/internal/adapters/logger"
)

func TestCounts(t *testing.T) {
	var buf strings.Builder
	l := logger.NewWithWriter(&buf)

	l.OutputInfo("building")
	l.OutputWarning("old record")
	l.OutputError("compile failed")
	l.OutputError("link failed")

	if got := l.WarningCount(); got != 1 {
		t.Errorf("WarningCount() = %d, want 1", got)
	}
	if got := l.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d, want 2", got)
	}
	out := buf.String()
	for _, want := range []string{"building", "old record", "compile failed", "link failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDebugComponents(t *testing.T) {
	var buf strings.Builder
	l := logger.NewWithWriter(&buf)

	l.OutputDebug("reason", "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug output emitted while component disabled")
	}

	l.EnableDebug("reason")
	if !l.DebugEnabled("reason") {
		t.Fatalf("DebugEnabled(reason) = false after EnableDebug")
	}
	if l.DebugEnabled("script") {
		t.Fatalf("DebugEnabled(script) = true, never enabled")
	}

	l.OutputDebug("reason", "shown")
	l.OutputDebug("script", "still hidden")
	out := buf.String()
	if !strings.Contains(out, "shown") {
		t.Errorf("enabled component output missing:\n%s", out)
	}
	if strings.Contains(out, "still hidden") {
		t.Errorf("disabled component output present:\n%s", out)
	}
}
