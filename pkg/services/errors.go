// Package services implements the compliance core: score calculation,
// workflow state tracking, execution fidelity assessment, the deviation
// registry and the alert engine.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidComponent    = errors.New("invalid COSO component")
	ErrInvalidAnswer       = errors.New("invalid checklist answer")
	ErrInvalidStepStatus   = errors.New("invalid step status")
	ErrEmptyResolution     = errors.New("resolution text is required")
	ErrInvalidDatePair     = errors.New("actual end date is before actual start date")
	ErrMissingRating       = errors.New("step assessment rating is missing")

	// State conflicts (409 Conflict).
	ErrFrozenAssessment      = errors.New("assessment is final and cannot be modified")
	ErrInvalidTransition     = errors.New("invalid lifecycle transition")
	ErrWorkflowCancelled     = errors.New("workflow is cancelled")

	// Consistency violations (500, these indicate a bug or corrupt state).
	ErrInconsistentState      = errors.New("inconsistent state")
	ErrNonContiguousSequence  = errors.New("step sequence numbers are not contiguous")
	ErrStepOutsideWorkflow    = errors.New("step does not belong to the assessment's workflow")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidComponent) ||
		errors.Is(err, ErrInvalidAnswer) ||
		errors.Is(err, ErrInvalidStepStatus) ||
		errors.Is(err, ErrEmptyResolution) ||
		errors.Is(err, ErrInvalidDatePair) ||
		errors.Is(err, ErrMissingRating)
}

// IsConflictError checks if an error is a state conflict that should return
// HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrFrozenAssessment) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrWorkflowCancelled)
}

// IsFrozenAssessment checks for mutation attempts on a final assessment.
func IsFrozenAssessment(err error) bool {
	return errors.Is(err, ErrFrozenAssessment)
}
