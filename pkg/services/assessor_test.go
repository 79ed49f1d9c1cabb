package services

import (
	"testing"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) *time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}

	return &parsed
}

func seedAssessment(t *testing.T, p *file.Persistence) (*Assessor, *models.Workflow, *models.ExecutionAssessment) {
	t.Helper()

	institution := seedInstitution(t, p)
	tracker := NewTracker(p, nil, testLogger())
	workflow := seedWorkflow(t, tracker, institution.ID, "Diagnóstico", "Plan de acción")

	assessor := NewAssessor(p, nil, DefaultThresholds(), testLogger())

	assessment, err := assessor.CreateAssessment(t.Context(), &models.ExecutionAssessment{
		WorkflowID: workflow.ID,
		AssessorID: "auditor-1",
	})
	require.NoError(t, err)

	return assessor, workflow, assessment
}

func TestAssessor_CreateAssessment(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	_, _, assessment := seedAssessment(t, persistenceStore)

	assert.NotEmpty(t, assessment.ID)
	assert.Equal(t, models.AssessmentStatusDraft, assessment.Status)
	assert.Equal(t, models.ExecutionStatusInProgress, assessment.ExecutionStatus)
	assert.False(t, assessment.AssessmentDate.IsZero())
	assert.Empty(t, assessment.Steps)
}

func TestAssessor_AssessStep_OnTimeFullCompliance(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	updated, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-01-10"),
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityExcellent,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.DesignComplianceScore)
	require.NotNil(t, updated.TimelineComplianceScore)
	require.NotNil(t, updated.QualityScore)
	require.NotNil(t, updated.OverallFidelityScore)

	assert.Equal(t, 100, *updated.DesignComplianceScore)
	assert.Equal(t, 100, *updated.TimelineComplianceScore)
	assert.Equal(t, 100, *updated.QualityScore)
	assert.Equal(t, 100, *updated.OverallFidelityScore)

	// Full compliance on time opens no deviations.
	deviations, err := persistenceStore.Deviations().GetByAssessment(t.Context(), assessment.ID)
	require.NoError(t, err)
	assert.Empty(t, deviations)
}

func TestAssessor_AssessStep_TwelveDaysLateOpensMajorTimelineDeviation(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	updated, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-01-22"), // 12 days late
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityExcellent,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.TimelineComplianceScore)
	assert.Less(t, *updated.TimelineComplianceScore, 100)
	assert.Equal(t, 14, *updated.TimelineComplianceScore) // round(100*(14-12)/14)

	deviations, err := persistenceStore.Deviations().GetByAssessment(t.Context(), assessment.ID)
	require.NoError(t, err)
	require.Len(t, deviations, 1)
	assert.Equal(t, models.DeviationTimeline, deviations[0].Type)
	assert.Equal(t, models.SeverityMajor, deviations[0].Severity)
	assert.Equal(t, models.DeviationOpen, deviations[0].Status)
	assert.Equal(t, "auditor-1", deviations[0].IdentifiedBy)
}

func TestAssessor_AssessStep_CriticalLatenessAndIndependentDeviations(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	updated, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-02-10"), // 31 days late
		DesignAdherence:  models.DesignNonCompliant,
		ExecutionQuality: models.QualityNeedsImprovement,
		OutputCompliance: models.OutputDoesNotMeet,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, *updated.TimelineComplianceScore)
	assert.Equal(t, 30, *updated.DesignComplianceScore)
	assert.Equal(t, 30, *updated.QualityScore)
	assert.Equal(t, 20, *updated.OverallFidelityScore)

	// One deviation per fired rule, each independently resolvable.
	deviations, err := persistenceStore.Deviations().GetByAssessment(t.Context(), assessment.ID)
	require.NoError(t, err)
	require.Len(t, deviations, 3)

	byType := make(map[models.DeviationType]*models.Deviation)
	for _, deviation := range deviations {
		byType[deviation.Type] = deviation
	}

	assert.Equal(t, models.SeverityCritical, byType[models.DeviationTimeline].Severity)
	assert.Equal(t, models.SeverityMajor, byType[models.DeviationProcess].Severity)
	assert.Equal(t, models.SeverityMajor, byType[models.DeviationQuality].Severity)
}

func TestAssessor_AssessStep_IdempotentDeviationCreation(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	step := &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-01-20"),
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	}

	_, err := assessor.AssessStep(t.Context(), assessment.ID, step)
	require.NoError(t, err)

	// A repeated assessment run over the same step must not duplicate the
	// timeline deviation.
	_, err = assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-01-20"),
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.NoError(t, err)

	deviations, err := persistenceStore.Deviations().GetByAssessment(t.Context(), assessment.ID)
	require.NoError(t, err)
	assert.Len(t, deviations, 1)
}

func TestAssessor_AssessStep_StepOutsideWorkflow(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, _, assessment := seedAssessment(t, persistenceStore)

	_, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   "foreign-step",
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepOutsideWorkflow)
}

func TestAssessor_AssessStep_InvalidDatePair(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	_, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		ActualStartDate:  date("2025-01-10"),
		ActualEndDate:    date("2025-01-05"),
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDatePair)
}

func TestAssessor_AssessStep_FrozenAssessment(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	_, err := assessor.SubmitForReview(t.Context(), assessment.ID)
	require.NoError(t, err)

	_, err = assessor.Finalize(t.Context(), assessment.ID)
	require.NoError(t, err)

	_, err = assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		DesignAdherence:  models.DesignFullyCompliant,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.Error(t, err)
	assert.True(t, IsFrozenAssessment(err))
}

func TestAssessor_StatusMachineIsOneDirectional(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, _, assessment := seedAssessment(t, persistenceStore)

	// Finalizing a draft skips under_review and is rejected.
	_, err := assessor.Finalize(t.Context(), assessment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	underReview, err := assessor.SubmitForReview(t.Context(), assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusUnderReview, underReview.Status)

	_, err = assessor.SubmitForReview(t.Context(), assessment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	final, err := assessor.Finalize(t.Context(), assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssessmentStatusFinal, final.Status)
}

func TestAssessor_AggregateMatchesStoredScores(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	_, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		PlannedEndDate:   date("2025-01-10"),
		ActualEndDate:    date("2025-01-12"),
		DesignAdherence:  models.DesignPartiallyCompliant,
		ExecutionQuality: models.QualitySatisfactory,
		OutputCompliance: models.OutputPartiallyMeets,
	})
	require.NoError(t, err)

	stored, err := assessor.GetAssessment(t.Context(), assessment.ID)
	require.NoError(t, err)

	recomputed, err := assessor.Aggregate(t.Context(), assessment.ID)
	require.NoError(t, err)

	assert.Equal(t, *stored.OverallFidelityScore, *recomputed.OverallFidelityScore)
	assert.Equal(t, *stored.DesignComplianceScore, *recomputed.DesignComplianceScore)
	assert.Equal(t, *stored.TimelineComplianceScore, *recomputed.TimelineComplianceScore)
	assert.Equal(t, *stored.QualityScore, *recomputed.QualityScore)
}

func TestAssessor_NotApplicableExcludedFromAggregation(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	updated, err := assessor.AssessStep(t.Context(), assessment.ID, &models.StepAssessment{
		WorkflowStepID:   workflow.Steps[0].ID,
		DesignAdherence:  models.DesignNotApplicable,
		ExecutionQuality: models.QualityGood,
		OutputCompliance: models.OutputMeetsRequirements,
	})
	require.NoError(t, err)

	// No design rating and no dates: only the quality pillar exists.
	assert.Nil(t, updated.DesignComplianceScore)
	assert.Nil(t, updated.TimelineComplianceScore)
	require.NotNil(t, updated.QualityScore)
	assert.Equal(t, 85, *updated.QualityScore) // mean(70, 100)
	require.NotNil(t, updated.OverallFidelityScore)
	assert.Equal(t, 85, *updated.OverallFidelityScore)
}

func TestAssessor_GetByInstitution(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	assessor, _, _ := seedAssessment(t, persistenceStore)

	assessments, err := assessor.AssessmentsByInstitution(t.Context(), "inst-1")
	require.NoError(t, err)
	assert.Len(t, assessments, 1)

	none, err := assessor.AssessmentsByInstitution(t.Context(), "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
