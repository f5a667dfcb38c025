/*
errors.go - Centralized error types for the stipend engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Program packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - User-correctable input problems (bad time window,
     learned without arriving early, ...). Reported synchronously.
  2. Not-found errors - Only for lookups that cannot express "absent" as nil.
  3. Store errors - Propagated as-is, never retried here.

USAGE:
  if generic.IsClientError(err) {
      // show err.Error() to the user
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every user-correctable rejection.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist and the
	// operation cannot continue without it.
	ErrNotFound = errors.New("not found")

	// ErrProgramNotFound is returned when a program id is not registered.
	ErrProgramNotFound = fmt.Errorf("program %w", ErrNotFound)

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = fmt.Errorf("%w: end before start", ErrValidation)

	// ErrStoreRequired is returned when an engine is built without a store.
	ErrStoreRequired = errors.New("store is required")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and a human readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
