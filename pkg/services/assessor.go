package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/events"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/google/uuid"
)

// Assessor compares planned step specifications against actual execution
// records. It writes assessments, step-assessment rows and deviations; it
// never mutates workflows directly.
type Assessor struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	thresholds  Thresholds
	logger      *slog.Logger
}

// NewAssessor creates a new execution fidelity assessor.
func NewAssessor(p persistence.Persistence, eb eventbus.EventPublisher, thresholds Thresholds, logger *slog.Logger) *Assessor {
	return &Assessor{
		persistence: p,
		eventBus:    eb,
		thresholds:  thresholds,
		logger:      logger,
	}
}

// CreateAssessment opens a draft assessment for a workflow.
func (a *Assessor) CreateAssessment(ctx context.Context, assessment *models.ExecutionAssessment) (*models.ExecutionAssessment, error) {
	workflow, err := a.persistence.Workflows().GetByID(ctx, assessment.WorkflowID)
	if err != nil {
		return nil, err
	}

	if assessment.AssessorID == "" {
		return nil, NewValidationError("CreateAssessment", "INVALID_REQUEST",
			"assessor_id is required", ErrInvalidRequest)
	}

	assessment.ID = newID()
	assessment.Status = models.AssessmentStatusDraft

	if assessment.AssessmentDate.IsZero() {
		assessment.AssessmentDate = time.Now().UTC()
	}

	if assessment.ExecutionStatus == "" {
		assessment.ExecutionStatus = executionStatusFor(workflow.Status)
	}

	if assessment.Steps == nil {
		assessment.Steps = []*models.StepAssessment{}
	}

	err = a.persistence.Assessments().Save(ctx, assessment)
	if err != nil {
		return nil, err
	}

	return assessment, nil
}

// GetAssessment returns one assessment with its step rows.
func (a *Assessor) GetAssessment(ctx context.Context, id string) (*models.ExecutionAssessment, error) {
	return a.persistence.Assessments().GetByID(ctx, id)
}

// AssessmentsByInstitution lists assessments across an institution's
// workflows.
func (a *Assessor) AssessmentsByInstitution(ctx context.Context, institutionID string) ([]*models.ExecutionAssessment, error) {
	return a.persistence.Assessments().GetByInstitution(ctx, institutionID)
}

// AssessStep records one step evaluation, recomputes the assessment's
// aggregate scores and opens any deviations the step triggers. Fails with
// FrozenAssessment when the assessment is final.
func (a *Assessor) AssessStep(ctx context.Context, assessmentID string, step *models.StepAssessment) (*models.ExecutionAssessment, error) {
	assessment, err := a.persistence.Assessments().GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.Status == models.AssessmentStatusFinal {
		return nil, NewValidationError("AssessStep", "FROZEN_ASSESSMENT",
			fmt.Sprintf("assessment %s is final", assessmentID), ErrFrozenAssessment)
	}

	err = a.validateStep(ctx, assessment, step)
	if err != nil {
		return nil, err
	}

	step.ID = newID()
	step.ExecutionAssessmentID = assessment.ID
	step.CreatedAt = time.Now().UTC()

	if step.ActualDuration == 0 && step.ActualStartDate != nil && step.ActualEndDate != nil {
		step.ActualDuration = int(step.ActualEndDate.Sub(*step.ActualStartDate).Hours() / 24)
	}

	if step.PlannedDuration == 0 && step.PlannedStartDate != nil && step.PlannedEndDate != nil {
		step.PlannedDuration = int(step.PlannedEndDate.Sub(*step.PlannedStartDate).Hours() / 24)
	}

	assessment.Steps = append(assessment.Steps, step)

	a.aggregate(assessment)

	err = a.persistence.Assessments().Save(ctx, assessment)
	if err != nil {
		return nil, err
	}

	a.emitDeviations(ctx, assessment, step)

	return assessment, nil
}

// Aggregate recomputes the four aggregate scores from the assessment's
// step rows and stores the result. Recomputation is pure, so repeating it
// without new step rows is a no-op.
func (a *Assessor) Aggregate(ctx context.Context, assessmentID string) (*models.ExecutionAssessment, error) {
	assessment, err := a.persistence.Assessments().GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.Status == models.AssessmentStatusFinal {
		return assessment, nil
	}

	a.aggregate(assessment)

	err = a.persistence.Assessments().Save(ctx, assessment)
	if err != nil {
		return nil, err
	}

	return assessment, nil
}

// SubmitForReview moves a draft assessment to under_review.
func (a *Assessor) SubmitForReview(ctx context.Context, assessmentID string) (*models.ExecutionAssessment, error) {
	return a.transition(ctx, assessmentID, models.AssessmentStatusDraft, models.AssessmentStatusUnderReview)
}

// Finalize moves an under_review assessment to final, freezing it.
func (a *Assessor) Finalize(ctx context.Context, assessmentID string) (*models.ExecutionAssessment, error) {
	assessment, err := a.transition(ctx, assessmentID, models.AssessmentStatusUnderReview, models.AssessmentStatusFinal)
	if err != nil {
		return nil, err
	}

	a.publishFinalized(ctx, assessment)

	return assessment, nil
}

func (a *Assessor) transition(ctx context.Context, assessmentID string, from, to models.AssessmentStatus) (*models.ExecutionAssessment, error) {
	assessment, err := a.persistence.Assessments().GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.Status != from {
		return nil, NewValidationError("TransitionAssessment", "INVALID_TRANSITION",
			fmt.Sprintf("cannot move assessment %s from %s to %s", assessmentID, assessment.Status, to), ErrInvalidTransition)
	}

	assessment.Status = to

	err = a.persistence.Assessments().Save(ctx, assessment)
	if err != nil {
		return nil, err
	}

	return assessment, nil
}

func (a *Assessor) validateStep(ctx context.Context, assessment *models.ExecutionAssessment, step *models.StepAssessment) error {
	if step.WorkflowStepID == "" {
		return NewValidationError("AssessStep", "INVALID_REQUEST",
			"workflow_step_id is required", ErrInvalidRequest)
	}

	if step.DesignAdherence == "" || step.ExecutionQuality == "" || step.OutputCompliance == "" {
		return NewValidationError("AssessStep", "MISSING_RATING",
			"design_adherence, execution_quality and output_compliance are all required", ErrMissingRating)
	}

	if step.ActualStartDate != nil && step.ActualEndDate != nil && step.ActualEndDate.Before(*step.ActualStartDate) {
		return NewValidationError("AssessStep", "INVALID_DATE_PAIR",
			"actual_end_date precedes actual_start_date", ErrInvalidDatePair)
	}

	workflow, err := a.persistence.Workflows().GetByID(ctx, assessment.WorkflowID)
	if err != nil {
		return err
	}

	for _, ws := range workflow.Steps {
		if ws.ID == step.WorkflowStepID {
			return nil
		}
	}

	return NewValidationError("AssessStep", "STEP_OUTSIDE_WORKFLOW",
		fmt.Sprintf("step %s does not belong to workflow %s", step.WorkflowStepID, assessment.WorkflowID), ErrStepOutsideWorkflow)
}

// aggregate derives the four scores from step rows. Each pillar is the mean
// of its contributing ratings; not_applicable ratings and steps without both
// end dates contribute nothing to their pillar.
func (a *Assessor) aggregate(assessment *models.ExecutionAssessment) {
	var designSum, designN, qualitySum, qualityN, timelineSum, timelineN int

	for _, step := range assessment.Steps {
		if value, ok := step.DesignAdherence.Score(); ok {
			designSum += value
			designN++
		}

		if value, ok := step.ExecutionQuality.Score(); ok {
			qualitySum += value
			qualityN++
		}

		if value, ok := step.OutputCompliance.Score(); ok {
			qualitySum += value
			qualityN++
		}

		if daysLate, ok := step.DaysLate(); ok {
			timelineSum += a.timelineScore(daysLate)
			timelineN++
		}
	}

	assessment.DesignComplianceScore = meanScore(designSum, designN)
	assessment.QualityScore = meanScore(qualitySum, qualityN)
	assessment.TimelineComplianceScore = meanScore(timelineSum, timelineN)

	pillarSum := 0
	pillarN := 0

	for _, pillar := range []*int{assessment.DesignComplianceScore, assessment.TimelineComplianceScore, assessment.QualityScore} {
		if pillar != nil {
			pillarSum += *pillar
			pillarN++
		}
	}

	assessment.OverallFidelityScore = meanScore(pillarSum, pillarN)
}

// timelineScore is 100 on or before the planned end, decaying linearly to 0
// at the critical lateness threshold.
func (a *Assessor) timelineScore(daysLate int) int {
	if daysLate <= 0 {
		return 100
	}

	critical := a.thresholds.LatenessCriticalDays
	if daysLate >= critical {
		return 0
	}

	return int(math.Round(100 * float64(critical-daysLate) / float64(critical)))
}

// emitDeviations opens one deviation per triggered rule. Each rule is
// independent, so one step can open several deviations resolvable on their
// own. Creation is idempotent on (assessment, step, type).
func (a *Assessor) emitDeviations(ctx context.Context, assessment *models.ExecutionAssessment, step *models.StepAssessment) {
	if step.DesignAdherence == models.DesignNonCompliant {
		a.openDeviation(ctx, assessment, step, models.DeviationProcess, models.SeverityMajor,
			"Step execution did not follow its planned design")
	}

	if step.OutputCompliance == models.OutputDoesNotMeet {
		a.openDeviation(ctx, assessment, step, models.DeviationQuality, models.SeverityMajor,
			"Step output does not meet its requirements")
	}

	if daysLate, ok := step.DaysLate(); ok && daysLate >= a.thresholds.LatenessMajorDays {
		severity := models.SeverityMajor
		if daysLate >= a.thresholds.LatenessCriticalDays {
			severity = models.SeverityCritical
		}

		a.openDeviation(ctx, assessment, step, models.DeviationTimeline, severity,
			fmt.Sprintf("Step finished %d days after its planned end date", daysLate))
	}
}

func (a *Assessor) openDeviation(ctx context.Context, assessment *models.ExecutionAssessment, step *models.StepAssessment, dt models.DeviationType, severity models.DeviationSeverity, description string) {
	existing, err := a.persistence.Deviations().FindByTrigger(ctx, assessment.ID, step.WorkflowStepID, dt)
	if err != nil && !errors.Is(err, persistence.ErrDeviationNotFound) {
		a.logger.ErrorContext(ctx, "Failed to check for existing deviation",
			"assessment_id", assessment.ID, "step_id", step.WorkflowStepID, "type", dt, "error", err)

		return
	}

	if existing != nil {
		return
	}

	deviation := &models.Deviation{
		ID:                    newID(),
		ExecutionAssessmentID: assessment.ID,
		WorkflowStepID:        step.WorkflowStepID,
		Type:                  dt,
		Severity:              severity,
		Description:           description,
		Status:                models.DeviationOpen,
		IdentifiedBy:          assessment.AssessorID,
		IdentifiedAt:          time.Now().UTC(),
	}

	err = a.persistence.Deviations().Save(ctx, deviation)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to store deviation",
			"assessment_id", assessment.ID, "step_id", step.WorkflowStepID, "type", dt, "error", err)

		return
	}

	a.publishDeviationOpened(ctx, deviation)
}

func (a *Assessor) publishDeviationOpened(ctx context.Context, deviation *models.Deviation) {
	if a.eventBus == nil {
		return
	}

	event := events.DeviationOpened{
		BaseEvent: events.BaseEvent{
			ID:        deviation.ID,
			Type:      events.DeviationOpenedEvent,
			Timestamp: deviation.IdentifiedAt,
		},
		Deviation: deviation,
	}

	err := a.eventBus.Publish(ctx, deviation.ExecutionAssessmentID, event)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to publish deviation.opened event",
			"deviation_id", deviation.ID, "error", err)
	}
}

func (a *Assessor) publishFinalized(ctx context.Context, assessment *models.ExecutionAssessment) {
	if a.eventBus == nil {
		return
	}

	event := events.AssessmentFinalized{
		BaseEvent: events.BaseEvent{
			ID:        assessment.ID,
			Type:      events.AssessmentFinalizedEvent,
			Timestamp: time.Now().UTC(),
		},
		AssessmentID: assessment.ID,
		WorkflowID:   assessment.WorkflowID,
	}

	err := a.eventBus.Publish(ctx, assessment.WorkflowID, event)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to publish assessment.finalized event",
			"assessment_id", assessment.ID, "error", err)
	}
}

func meanScore(sum, n int) *int {
	if n == 0 {
		return nil
	}

	value := int(math.Round(float64(sum) / float64(n)))

	return &value
}

func executionStatusFor(status models.WorkflowStatus) models.ExecutionStatus {
	switch status {
	case models.WorkflowStatusCompleted:
		return models.ExecutionStatusCompleted
	case models.WorkflowStatusDelayed:
		return models.ExecutionStatusDelayed
	case models.WorkflowStatusCancelled:
		return models.ExecutionStatusCancelled
	default:
		return models.ExecutionStatusInProgress
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}

	return id.String()
}
