package models

import "time"

// DeviationType classifies what kind of departure from plan was recorded.
type DeviationType string

const (
	DeviationTimeline       DeviationType = "timeline"
	DeviationProcess        DeviationType = "process"
	DeviationQuality        DeviationType = "quality"
	DeviationResource       DeviationType = "resource"
	DeviationResponsibility DeviationType = "responsibility"
)

// DeviationSeverity ranks deviations for reporting.
type DeviationSeverity string

const (
	SeverityCritical      DeviationSeverity = "critical"
	SeverityMajor         DeviationSeverity = "major"
	SeverityMinor         DeviationSeverity = "minor"
	SeverityInformational DeviationSeverity = "informational"
)

// Rank orders severities for sorting, critical first.
func (s DeviationSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	case SeverityInformational:
		return 3
	default:
		return 4
	}
}

// DeviationStatus is the resolution lifecycle state. Transitions run
// open -> under_review -> resolved -> closed; the only backward move is an
// explicit reopen from closed back to open.
type DeviationStatus string

const (
	DeviationOpen        DeviationStatus = "open"
	DeviationUnderReview DeviationStatus = "under_review"
	DeviationResolved    DeviationStatus = "resolved"
	DeviationClosed      DeviationStatus = "closed"
)

// Deviation records a departure from planned execution, discovered by the
// assessor or entered manually by a reviewer.
type Deviation struct {
	ID                    string            `json:"id"`
	ExecutionAssessmentID string            `json:"execution_assessment_id" validate:"required"`
	WorkflowStepID        string            `json:"workflow_step_id,omitempty"`
	Type                  DeviationType     `json:"type"     validate:"required,oneof=timeline process quality resource responsibility"`
	Severity              DeviationSeverity `json:"severity" validate:"required,oneof=critical major minor informational"`
	Description           string            `json:"description" validate:"required"`
	Status                DeviationStatus   `json:"status"`
	IdentifiedBy          string            `json:"identified_by"`
	IdentifiedAt          time.Time         `json:"identified_at"`
	Resolution            string            `json:"resolution,omitempty"`
	ResolvedAt            *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy            string            `json:"resolved_by,omitempty"`
}
