package errors

import (
	"errors"
	"fmt"
)

// Generic error types shared by adapters and transports

var (
	// ErrNotFound indicates a resource or data source was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrUnavailable indicates a dependency is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Model errors

var (
	// ErrEmptyTrainingSet indicates fit was called without any rows
	ErrEmptyTrainingSet = errors.New("empty training set")

	// ErrNotTrained indicates prediction was requested before fit
	ErrNotTrained = errors.New("classifier is not trained")

	// ErrDimensionMismatch indicates a feature vector of the wrong length
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrInvalidLabel indicates a training label outside {0, 1}
	ErrInvalidLabel = errors.New("invalid training label")
)

// Engine errors

var (
	// ErrNotReady indicates analyze was called before a successful load
	ErrNotReady = errors.New("recommendation engine is not ready")

	// ErrStageNotFound indicates the stage has no ideal-value row.
	// Soft condition: it only suppresses recommendations.
	ErrStageNotFound = errors.New("stage not found in ideal-value table")
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
