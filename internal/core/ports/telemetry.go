package ports

import "io"

// Telemetry records build progress as vertices, one per unit of work.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts a vertex for the named unit of work.
	Record(name string) Vertex
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one in-flight unit of work in the progress display.
type Vertex interface {
	// Stdout returns a writer for the unit's output stream.
	Stdout() io.Writer
	// Cached marks the unit as skipped because it was up to date.
	Cached()
	// Complete marks the unit finished, with err nil on success.
	Complete(err error)
}
