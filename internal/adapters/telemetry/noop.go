package telemetry

import (
	"io"

	"github.com/donno/cake/internal/core/ports"
)

// NoOp is a telemetry recorder that discards everything. It keeps tool code
// free of nil checks when progress display is disabled.
type NoOp struct{}

// NewNoOp creates a no-op recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Record implements ports.Telemetry.
func (NoOp) Record(name string) ports.Vertex {
	return noopVertex{}
}

// Close implements ports.Telemetry.
func (NoOp) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Stdout() io.Writer { return io.Discard }
func (noopVertex) Cached()           {}
func (noopVertex) Complete(error)    {}

var _ ports.Telemetry = NoOp{}
