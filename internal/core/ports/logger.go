// Package ports defines the core interfaces for the application.
package ports

// Logger is the build log boundary. Implementations must serialize concurrent
// writes so multi-line messages from different worker goroutines never
// interleave.
//
//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// OutputInfo logs an informative message.
	OutputInfo(msg string)
	// OutputWarning logs a warning and increments the warning count.
	OutputWarning(msg string)
	// OutputError logs an error and increments the error count.
	OutputError(msg string)
	// OutputDebug logs a message only when the component is being debugged.
	OutputDebug(component, msg string)

	// EnableDebug turns on debug output for a component.
	EnableDebug(component string)
	// DebugEnabled reports whether the component is being debugged.
	DebugEnabled(component string) bool

	// ErrorCount returns the number of errors logged so far.
	ErrorCount() int
	// WarningCount returns the number of warnings logged so far.
	WarningCount() int
}
