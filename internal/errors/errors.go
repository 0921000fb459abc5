// Package errors provides the structured error taxonomy for the enrichment core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the suggestion and knowledge workflows.
var (
	// ErrValidation means a required field was missing or empty.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the suggestion id is unknown within the project.
	ErrNotFound = errors.New("suggestion not found")

	// ErrInvalidState means a transition was attempted from a terminal state.
	ErrInvalidState = errors.New("invalid suggestion state")

	// ErrStorage means the embedding or persistence backend failed.
	ErrStorage = errors.New("storage failure")
)

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted detail message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}

// Storagef wraps ErrStorage with a formatted detail message.
func Storagef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrStorage}, args...)...)
}

// Kind returns a short machine-readable label for an error, used in
// action responses and metrics labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
