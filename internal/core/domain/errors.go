package domain

import (
	"errors"
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrDuplicateVariant is returned when registering a variant whose keyword
	// set is already registered with the engine.
	ErrDuplicateVariant = zerr.New("variant already registered")

	// ErrNoSuchVariant is returned when no registered variant matches the
	// requested criteria.
	ErrNoSuchVariant = zerr.New("no variants matched criteria")

	// ErrAmbiguousVariant is returned when more than one registered variant
	// matches the requested criteria.
	ErrAmbiguousVariant = zerr.New("multiple variants matched criteria")

	// ErrInvalidDependencyRecord is returned when a stored dependency record
	// does not decode to a well-formed record.
	ErrInvalidDependencyRecord = zerr.New("invalid dependency record")

	// ErrRecordVersionMismatch is returned when a stored dependency record has
	// a schema version other than the running engine's. Callers treat this the
	// same as a missing record.
	ErrRecordVersionMismatch = zerr.New("dependency record version mismatch")

	// ErrUnknownTool is returned when a script step names a tool that the
	// active variant does not provide.
	ErrUnknownTool = zerr.New("unknown tool")

	// ErrBuildFailed signals that a build completed with failures that were
	// already reported. Callers exit nonzero without printing it again.
	ErrBuildFailed = zerr.New("build failed")
)

// BuildError is an expected build failure. The site that raises it has already
// reported a user-facing message, so it propagates to fail its task without
// any extra trace assembly.
type BuildError struct {
	Message string
}

// NewBuildError creates a BuildError with the given message.
func NewBuildError(format string, args ...any) *BuildError {
	return &BuildError{Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return e.Message
}

// IsBuildError reports whether err is (or wraps) an expected build failure.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
