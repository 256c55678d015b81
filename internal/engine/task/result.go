package task

import (
	"errors"

	"github.com/donno/cake/internal/core/domain"
)

// Outcome classifies how a task ended.
type Outcome int

const (
	// OutcomeSuccess indicates the operation completed without error.
	OutcomeSuccess Outcome = iota
	// OutcomeExpectedFailure indicates an expected build failure, or a
	// failure propagated from a causally linked task, whose message was
	// already reported at the point of origin.
	OutcomeExpectedFailure
	// OutcomeUnexpectedFailure indicates any other failure.
	OutcomeUnexpectedFailure
)

// Result is a task's tagged outcome.
type Result struct {
	Outcome Outcome
	Err     error
}

func resultOf(err error) Result {
	switch {
	case err == nil:
		return Result{Outcome: OutcomeSuccess}
	case domain.IsBuildError(err),
		errors.Is(err, ErrPredecessorFailed),
		errors.Is(err, ErrChildFailed):
		return Result{Outcome: OutcomeExpectedFailure, Err: err}
	default:
		return Result{Outcome: OutcomeUnexpectedFailure, Err: err}
	}
}
