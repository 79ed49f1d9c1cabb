package models

import "time"

// AssessmentStatus is the review state of an execution assessment. The
// machine is one-directional: draft -> under_review -> final. Final is
// terminal and freezes the assessment and its step rows.
type AssessmentStatus string

const (
	AssessmentStatusDraft       AssessmentStatus = "draft"
	AssessmentStatusUnderReview AssessmentStatus = "under_review"
	AssessmentStatusFinal       AssessmentStatus = "final"
)

// ExecutionStatus is the assessor's view of how the workflow execution went.
type ExecutionStatus string

const (
	ExecutionStatusInProgress ExecutionStatus = "in_progress"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusDelayed    ExecutionStatus = "delayed"
	ExecutionStatusCancelled  ExecutionStatus = "cancelled"
)

// ExecutionAssessment compares a workflow's planned design against its
// actual execution. The four scores are always derivable by recomputing
// from the assessment's step rows; they are never edited independently
// once step assessments exist.
type ExecutionAssessment struct {
	ID              string           `json:"id"`
	WorkflowID      string           `json:"workflow_id" validate:"required"`
	AssessorID      string           `json:"assessor_id" validate:"required"`
	AssessmentDate  time.Time        `json:"assessment_date"`
	ExecutionStatus ExecutionStatus  `json:"execution_status"`
	Status          AssessmentStatus `json:"status"`

	// Aggregate scores, each in [0,100]; nil until at least one step has
	// been assessed for the relevant pillar.
	OverallFidelityScore    *int `json:"overall_fidelity_score,omitempty"`
	DesignComplianceScore   *int `json:"design_compliance_score,omitempty"`
	TimelineComplianceScore *int `json:"timeline_compliance_score,omitempty"`
	QualityScore            *int `json:"quality_score,omitempty"`

	OverallFindings string `json:"overall_findings,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`

	Steps     []*StepAssessment `json:"steps"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DesignAdherence rates how closely a step followed its planned design.
type DesignAdherence string

const (
	DesignFullyCompliant     DesignAdherence = "fully_compliant"
	DesignPartiallyCompliant DesignAdherence = "partially_compliant"
	DesignNonCompliant       DesignAdherence = "non_compliant"
	DesignNotApplicable      DesignAdherence = "not_applicable"
)

// ExecutionQuality rates how well a step was carried out.
type ExecutionQuality string

const (
	QualityExcellent        ExecutionQuality = "excellent"
	QualityGood             ExecutionQuality = "good"
	QualitySatisfactory     ExecutionQuality = "satisfactory"
	QualityNeedsImprovement ExecutionQuality = "needs_improvement"
)

// OutputCompliance rates whether a step's output met its requirements.
type OutputCompliance string

const (
	OutputMeetsRequirements OutputCompliance = "meets_requirements"
	OutputPartiallyMeets    OutputCompliance = "partially_meets"
	OutputDoesNotMeet       OutputCompliance = "does_not_meet"
)

// Ordinal ratings map onto a 0-100 scale for aggregation.
const (
	ratingFull         = 100
	ratingPartial      = 70
	ratingSatisfactory = 60
	ratingFailing      = 30
)

// Score maps the adherence rating to the 0-100 scale. Returns false for
// not_applicable, which is excluded from aggregation.
func (d DesignAdherence) Score() (int, bool) {
	switch d {
	case DesignFullyCompliant:
		return ratingFull, true
	case DesignPartiallyCompliant:
		return ratingPartial, true
	case DesignNonCompliant:
		return ratingFailing, true
	default:
		return 0, false
	}
}

// Score maps the quality rating to the 0-100 scale.
func (q ExecutionQuality) Score() (int, bool) {
	switch q {
	case QualityExcellent:
		return ratingFull, true
	case QualityGood:
		return ratingPartial, true
	case QualitySatisfactory:
		return ratingSatisfactory, true
	case QualityNeedsImprovement:
		return ratingFailing, true
	default:
		return 0, false
	}
}

// Score maps the output rating to the 0-100 scale.
func (o OutputCompliance) Score() (int, bool) {
	switch o {
	case OutputMeetsRequirements:
		return ratingFull, true
	case OutputPartiallyMeets:
		return ratingPartial, true
	case OutputDoesNotMeet:
		return ratingFailing, true
	default:
		return 0, false
	}
}

// StepAssessment evaluates one workflow step's actual execution against its
// plan. Rows are append-only evaluation history and are never deleted.
type StepAssessment struct {
	ID                    string `json:"id"`
	ExecutionAssessmentID string `json:"execution_assessment_id"`
	WorkflowStepID        string `json:"workflow_step_id" validate:"required"`

	PlannedStartDate *time.Time `json:"planned_start_date,omitempty"`
	ActualStartDate  *time.Time `json:"actual_start_date,omitempty"`
	PlannedEndDate   *time.Time `json:"planned_end_date,omitempty"`
	ActualEndDate    *time.Time `json:"actual_end_date,omitempty"`
	PlannedDuration  int        `json:"planned_duration"` // days
	ActualDuration   int        `json:"actual_duration"`  // days

	DesignAdherence  DesignAdherence  `json:"design_adherence"  validate:"required,oneof=fully_compliant partially_compliant non_compliant not_applicable"`
	ExecutionQuality ExecutionQuality `json:"execution_quality" validate:"required,oneof=excellent good satisfactory needs_improvement"`
	OutputCompliance OutputCompliance `json:"output_compliance" validate:"required,oneof=meets_requirements partially_meets does_not_meet"`

	Observations string    `json:"observations,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DaysLate returns how many days the actual end overran the planned end.
// Zero or negative means on time. Returns false when either date is unset.
func (sa *StepAssessment) DaysLate() (int, bool) {
	if sa.PlannedEndDate == nil || sa.ActualEndDate == nil {
		return 0, false
	}

	days := int(sa.ActualEndDate.Sub(*sa.PlannedEndDate).Hours() / 24)

	return days, true
}
