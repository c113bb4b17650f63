package recognition

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for engine calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the engine took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnavailable indicates the engine or its backend cannot be reached
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorBadInput indicates the engine could not use the image it was given
	ErrorBadInput ErrorCategory = "bad_input"

	// ErrorBadResponse indicates the engine returned malformed output
	ErrorBadResponse ErrorCategory = "bad_response"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// EngineError wraps engine failures with normalized categorization.
type EngineError struct {
	Category   ErrorCategory
	Engine     string
	Message    string
	Underlying error
	Retryable  bool // Whether a later call may succeed
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("engine %s [%s]: %s: %v", e.Engine, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("engine %s [%s]: %s", e.Engine, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// NewEngineError creates a new normalized engine error.
func NewEngineError(category ErrorCategory, engine, message string, underlying error) *EngineError {
	retryable := category == ErrorTimeout || category == ErrorUnavailable

	return &EngineError{
		Category:   category,
		Engine:     engine,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrorInternal
}

// Sentinel errors for common cases
var (
	ErrEngineOpen   = errors.New("engine circuit open")
	ErrMissingPath  = errors.New("input has no path")
	ErrMissingImage = errors.New("input has no image")
)
