// Package shared contains common domain types, errors and events that are used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// ErrValidation marks malformed or missing required input: an empty name,
	// an unparseable date, a reference to a classroom that does not exist.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a referenced id that does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict marks an operation blocked by a dependent entity.
	ErrConflict = errors.New("conflict")

	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")
	ErrTooLong       = errors.New("value too long")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "classroom", "student", "attendance"
	Op      string // Operation that failed, e.g., "Create", "Delete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation returns a validation error for the given domain and operation.
func Validation(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// Classroom domain errors
var (
	ErrClassroomNotFound    = NewDomainError("classroom", "Find", ErrNotFound, "classroom not found")
	ErrClassroomHasStudents = NewDomainError("classroom", "Delete", ErrConflict, "classroom has assigned students")
	ErrUnknownClassroom     = NewDomainError("classroom", "Reference", ErrValidation, "classroom does not exist")
)

// Student domain errors
var (
	ErrStudentNotFound = NewDomainError("student", "Find", ErrNotFound, "student not found")
)

// Attendance domain errors
var (
	ErrInvalidDate   = NewDomainError("attendance", "ParseDate", ErrValidation, "date must be in YYYY-MM-DD format")
	ErrInvalidStatus = NewDomainError("attendance", "Validate", ErrValidation, "status must be Present or Absent")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a dependent-entity conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrTooLong)
}

// Message extracts the human-readable message of a domain error, falling back
// to err.Error() for anything else.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
