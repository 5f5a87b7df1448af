package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the simulation singleton does not exist.
	ErrNotInitialized = errors.New("simulation not initialized")
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrMalformedWaypoints marks a stored waypoints column that cannot be decoded.
	ErrMalformedWaypoints = errors.New("malformed waypoints")
)

// ValidationError rejects a write before anything is persisted.
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError wraps ErrNotFound with the entity and id that were missing.
func NotFoundError(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// DataQualityError describes malformed stored data that prevented one
// train's update during a step. It never aborts the step.
type DataQualityError struct {
	TrainID int64
	Reason  string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("train %d: %s", e.TrainID, e.Reason)
}

// StorageFailure wraps an error from the persistence layer.
type StorageFailure struct {
	Op  string
	Err error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageFailure) Unwrap() error { return e.Err }
