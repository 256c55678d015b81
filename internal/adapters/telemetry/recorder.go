// Package telemetry provides the Progrock implementation of the build
// progress recorder.
package telemetry

import (
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"

	"github.com/donno/cake/internal/core/ports"
)

// Recorder implements ports.Telemetry using the progrock library.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Record implements ports.Telemetry.
func (r *Recorder) Record(name string) ports.Vertex {
	d := digest.FromString(name)
	return &Vertex{vertex: r.rec.Vertex(d, name)}
}

// Close implements ports.Telemetry.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout implements ports.Vertex.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Cached implements ports.Vertex.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}

// Complete implements ports.Vertex.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

var _ ports.Telemetry = (*Recorder)(nil)
