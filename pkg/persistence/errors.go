// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrInstitutionNotFound indicates an institution was not found by the given identifier.
	ErrInstitutionNotFound = errors.New("institution not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStepNotFound indicates a workflow step was not found by the given identifier.
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrChecklistItemNotFound indicates a checklist item was not found by the given identifier.
	ErrChecklistItemNotFound = errors.New("checklist item not found")

	// ErrAssessmentNotFound indicates an execution assessment was not found by the given identifier.
	ErrAssessmentNotFound = errors.New("assessment not found")

	// ErrDeviationNotFound indicates a deviation was not found by the given identifier.
	ErrDeviationNotFound = errors.New("deviation not found")

	// ErrScoreNotFound indicates no compliance score exists for the given criteria.
	ErrScoreNotFound = errors.New("compliance score not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string // Workflow ID if applicable
	StepID     string // Step ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s operation failed for step %s in workflow %s: %v", e.Op, e.StepID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// AssessmentError wraps assessment-related errors with additional context.
type AssessmentError struct {
	Op           string // Operation being performed
	AssessmentID string // Assessment ID
	Err          error  // Underlying error
}

func (e *AssessmentError) Error() string {
	return fmt.Sprintf("%s operation failed for assessment %s: %v", e.Op, e.AssessmentID, e.Err)
}

func (e *AssessmentError) Unwrap() error {
	return e.Err
}

func (e *AssessmentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAssessmentError creates a new assessment error with context.
func NewAssessmentError(op, assessmentID string, err error) *AssessmentError {
	return &AssessmentError{
		Op:           op,
		AssessmentID: assessmentID,
		Err:          err,
	}
}

// IsInstitutionNotFound checks if an error indicates an institution was not found.
func IsInstitutionNotFound(err error) bool {
	return errors.Is(err, ErrInstitutionNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStepNotFound checks if an error indicates a workflow step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsAssessmentNotFound checks if an error indicates an assessment was not found.
func IsAssessmentNotFound(err error) bool {
	return errors.Is(err, ErrAssessmentNotFound)
}

// IsDeviationNotFound checks if an error indicates a deviation was not found.
func IsDeviationNotFound(err error) bool {
	return errors.Is(err, ErrDeviationNotFound)
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInstitutionNotFound) ||
		errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrChecklistItemNotFound) ||
		errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrDeviationNotFound) ||
		errors.Is(err, ErrScoreNotFound)
}
