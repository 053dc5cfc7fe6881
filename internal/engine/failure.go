package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwsmith1983/autosetup/pkg/types"
)

var (
	// ErrPrerequisite marks a failure caused by a missing prerequisite.
	ErrPrerequisite = errors.New("prerequisite not met")
	// ErrTimeout marks a path that exceeded its bounded timeout.
	ErrTimeout = errors.New("timed out")
	// ErrPanic marks a path whose operation panicked.
	ErrPanic = errors.New("operation panicked")
	// ErrCancelled prefixes the detail of an action interrupted by cancellation.
	ErrCancelled = errors.New("sequence cancelled")
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth a fallback attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Skip returns an error that makes the executor report the action as skipped.
func Skip(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrerequisite, fmt.Sprintf(format, args...))
}

// ClassifyFailure categorizes an operation error.
func ClassifyFailure(err error) types.FailureCategory {
	if err == nil {
		return ""
	}

	var perm *permanentError
	switch {
	case errors.Is(err, ErrPrerequisite):
		return types.FailurePrerequisite
	case errors.As(err, &perm):
		return types.FailurePermanent
	case errors.Is(err, ErrInvalidAction):
		return types.FailureConfiguration
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return types.FailureTimeout
	case errors.Is(err, ErrPanic):
		return types.FailureCrash
	default:
		return types.FailureTransient
	}
}
