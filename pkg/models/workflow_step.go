package models

import "time"

// StepStatus represents the lifecycle state of a single workflow step.
type StepStatus string

const (
	StepStatusNotStarted StepStatus = "not_started"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
)

// WorkflowStep is one planned activity inside a workflow. SequenceNumber is
// kept a dense 1..N ordering within the workflow; inserts, removals and
// reorders renumber the remaining steps.
type WorkflowStep struct {
	ID                string     `json:"id"`
	WorkflowID        string     `json:"workflow_id"`
	SequenceNumber    int        `json:"sequence_number"`
	Name              string     `json:"name"             validate:"required"`
	ResponsibleRole   string     `json:"responsible_role"`
	PlannedStartDate  *time.Time `json:"planned_start_date,omitempty"`
	PlannedEndDate    *time.Time `json:"planned_end_date,omitempty"`
	EstimatedDuration int        `json:"estimated_duration"` // days
	Status            StepStatus `json:"status"`
	StatusChangedAt   time.Time  `json:"status_changed_at"`
}
