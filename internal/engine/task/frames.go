package task

import (
	"fmt"
	"runtime"
	"strings"
)

// Frame is one recorded call site from the point a task was spawned. Chains
// of frames across parent tasks reconstruct a meaningful trace over
// asynchronous boundaries, where a native stack would only show the
// immediate task's goroutine.
type Frame struct {
	Function string
	File     string
	Line     int
}

// CaptureFrames records the calling stack, skipping the given number of
// frames below the caller of CaptureFrames itself.
func CaptureFrames(skip int) []Frame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		f, more := frames.Next()
		out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return out
}

// FormatFrames renders frames one per line, innermost last.
func FormatFrames(frames []Frame) string {
	var b strings.Builder
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.File, f.Line)
	}
	return b.String()
}

// CausalFrames walks the parent chain of t and concatenates the recorded
// frames, oldest task first, ending with the given innermost frames.
func CausalFrames(t *Task, innermost []Frame) string {
	var chain [][]Frame
	chain = append(chain, innermost)
	for cur := t; cur != nil; cur = cur.Parent() {
		if frames := cur.Frames(); frames != nil {
			chain = append(chain, frames)
		}
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		b.WriteString(FormatFrames(chain[i]))
	}
	return b.String()
}
