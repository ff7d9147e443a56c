package domain

import (
	"errors"
	"fmt"
)

// The error taxonomy below determines how far a failure propagates:
//
//   - UnauthenticatedError blocks the turn before it starts.
//   - ValidationError and ProviderError are scoped to a single tool call
//     and are reported through that call's result, never past the loop.
//   - TransportError aborts the whole turn with a terminal stream error.
//
// BoundExceeded is deliberately not an error: hitting the step cap ends
// the turn gracefully with whatever partial answer exists.

// UnauthenticatedError means no usable session or provider token exists.
type UnauthenticatedError struct {
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	if e.Reason == "" {
		return "unauthenticated"
	}
	return "unauthenticated: " + e.Reason
}

// ValidationError means a tool call's input failed schema validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ProviderError means the calendar provider rejected a request.
type ProviderError struct {
	Op         string // "list", "create", "update", "delete"
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("calendar %s failed: %s", e.Op, e.Message)
}

// TransportError means the model backend or the stream itself failed.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.Cause }

// IsUnauthenticated reports whether err is an authentication failure.
func IsUnauthenticated(err error) bool {
	var ue *UnauthenticatedError
	return errors.As(err, &ue)
}

// IsValidation reports whether err is a tool input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
