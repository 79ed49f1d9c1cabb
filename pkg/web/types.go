// Package web provides HTTP request and response types for the compliance
// API.
package web

import "time"

// CreateWorkflowRequest is the body for registering a new component
// implementation workflow.
type CreateWorkflowRequest struct {
	InstitutionID string              `json:"institution_id" validate:"required"`
	ComponentType string              `json:"component_type" validate:"required"`
	Name          string              `json:"name"           validate:"required,min=3"`
	Description   string              `json:"description"`
	AssignedToID  string              `json:"assigned_to_id"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	Steps         []CreateStepRequest `json:"steps,omitempty" validate:"dive"`
}

// CreateStepRequest is one planned step inside a workflow creation or
// step-addition request.
type CreateStepRequest struct {
	SequenceNumber    int        `json:"sequence_number"`
	Name              string     `json:"name"             validate:"required"`
	ResponsibleRole   string     `json:"responsible_role"`
	PlannedStartDate  *time.Time `json:"planned_start_date,omitempty"`
	PlannedEndDate    *time.Time `json:"planned_end_date,omitempty"`
	EstimatedDuration int        `json:"estimated_duration"`
}

// AdvanceStepRequest moves a step to a new status.
type AdvanceStepRequest struct {
	Status string `json:"status" validate:"required,oneof=not_started in_progress completed"`
}

// SaveResponseRequest records an institution's answer to a checklist item.
type SaveResponseRequest struct {
	InstitutionID   string `json:"institution_id"    validate:"required"`
	ChecklistItemID string `json:"checklist_item_id" validate:"required"`
	Answer          string `json:"answer"            validate:"required,oneof=yes partial no"`
	Comment         string `json:"comment"`
	EvidenceRef     string `json:"evidence_ref"`
	AnsweredBy      string `json:"answered_by"`
}

// RecalculateScoresRequest triggers a full recalculation for one
// institution.
type RecalculateScoresRequest struct {
	InstitutionID string `json:"institution_id" validate:"required"`
}

// CheckAlertsRequest triggers an alert evaluation run.
type CheckAlertsRequest struct {
	InstitutionID string `json:"institution_id" validate:"required"`
}

// CreateAssessmentRequest opens a draft execution assessment.
type CreateAssessmentRequest struct {
	WorkflowID      string `json:"workflow_id" validate:"required"`
	AssessorID      string `json:"assessor_id" validate:"required"`
	ExecutionStatus string `json:"execution_status,omitempty" validate:"omitempty,oneof=in_progress completed delayed cancelled"`
	OverallFindings string `json:"overall_findings"`
	Recommendations string `json:"recommendations"`
}

// AssessStepRequest records one step evaluation on a draft assessment.
type AssessStepRequest struct {
	WorkflowStepID   string     `json:"workflow_step_id"  validate:"required"`
	PlannedStartDate *time.Time `json:"planned_start_date,omitempty"`
	ActualStartDate  *time.Time `json:"actual_start_date,omitempty"`
	PlannedEndDate   *time.Time `json:"planned_end_date,omitempty"`
	ActualEndDate    *time.Time `json:"actual_end_date,omitempty"`
	DesignAdherence  string     `json:"design_adherence"  validate:"required,oneof=fully_compliant partially_compliant non_compliant not_applicable"`
	ExecutionQuality string     `json:"execution_quality" validate:"required,oneof=excellent good satisfactory needs_improvement"`
	OutputCompliance string     `json:"output_compliance" validate:"required,oneof=meets_requirements partially_meets does_not_meet"`
	Observations     string     `json:"observations"`
}

// CreateAuditFindingRequest records a manually identified deviation.
type CreateAuditFindingRequest struct {
	ExecutionAssessmentID string `json:"execution_assessment_id" validate:"required"`
	WorkflowStepID        string `json:"workflow_step_id"`
	Type                  string `json:"type"        validate:"required,oneof=timeline process quality resource responsibility"`
	Severity              string `json:"severity"    validate:"required,oneof=critical major minor informational"`
	Description           string `json:"description" validate:"required"`
	IdentifiedBy          string `json:"identified_by"`
}

// UpdateDeviationRequest applies one lifecycle transition to a deviation.
type UpdateDeviationRequest struct {
	Action     string `json:"action" validate:"required,oneof=under_review resolve close reopen"`
	Resolution string `json:"resolution"`
	ResolvedBy string `json:"resolved_by"`
}
