package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoTargets          = errors.New("no valid marketplace target")
	ErrSessionUnavailable = errors.New("rendering session unavailable")
)

// RunError is an unanticipated fault raised while a scrape was running.
// Its message is what the caller sees in the 500 response.
type RunError struct {
	Message string
	Err     error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps a panic value or error into a RunError.
func NewRunError(v any) *RunError {
	switch t := v.(type) {
	case *RunError:
		return t
	case error:
		return &RunError{Message: "scrape failed", Err: t}
	default:
		return &RunError{Message: fmt.Sprint(t)}
	}
}
