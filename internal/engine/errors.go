package engine

import (
	"errors"
	"fmt"
)

// InvariantError reports a correlation state that should be unreachable.
//
// The engine never propagates these: it logs them at error level, resets to
// Idle and emits nothing.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantErrorCode

	// Message is a human-readable description.
	Message string

	// State is the rendering of the offending state.
	State string
}

// InvariantErrorCode categorizes invariant violations.
type InvariantErrorCode string

const (
	// ErrCodeNotTerminal indicates an outcome was requested for a state
	// without a terminal phase.
	ErrCodeNotTerminal InvariantErrorCode = "NOT_TERMINAL"

	// ErrCodeMalformedState indicates a state outside the defined variants.
	ErrCodeMalformedState InvariantErrorCode = "MALFORMED_STATE"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: %s (state=%s)", e.Code, e.Message, e.State)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantError reports whether err is or wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

func newInvariantError(code InvariantErrorCode, s State, msg string) *InvariantError {
	e := &InvariantError{Code: code, Message: msg}
	if s != nil {
		e.State = s.String()
	}
	return e
}
