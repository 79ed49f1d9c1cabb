package models

import "time"

// WorkflowStatus represents the lifecycle state of a component
// implementation workflow.
type WorkflowStatus string

const (
	WorkflowStatusNotStarted WorkflowStatus = "not_started"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusDelayed    WorkflowStatus = "delayed"    // Set externally by the assessor or alert engine
	WorkflowStatusCancelled  WorkflowStatus = "cancelled"  // Terminal, set externally
)

// Workflow tracks the implementation of one COSO component at one
// institution. Progress is derived from step completion and never set
// arbitrarily.
type Workflow struct {
	ID            string          `json:"id"`
	InstitutionID string          `json:"institution_id" validate:"required"`
	ComponentType ComponentType   `json:"component_type" validate:"required"`
	Name          string          `json:"name"           validate:"required,min=3"`
	Description   string          `json:"description"`
	Status        WorkflowStatus  `json:"status"`
	Progress      int             `json:"progress"       validate:"min=0,max=100"`
	AssignedToID  string          `json:"assigned_to_id"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Steps         []*WorkflowStep `json:"steps"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PendingSteps counts steps that are not yet completed.
func (w *Workflow) PendingSteps() int {
	pending := 0

	for _, step := range w.Steps {
		if step.Status != StepStatusCompleted {
			pending++
		}
	}

	return pending
}

// LastStepChange returns the most recent step status-change timestamp, or
// the workflow's creation time when it has no steps. Workflow-level saves do
// not count as activity.
func (w *Workflow) LastStepChange() time.Time {
	if len(w.Steps) == 0 {
		return w.CreatedAt
	}

	last := w.Steps[0].StatusChangedAt

	for _, step := range w.Steps[1:] {
		if step.StatusChangedAt.After(last) {
			last = step.StatusChangedAt
		}
	}

	return last
}
