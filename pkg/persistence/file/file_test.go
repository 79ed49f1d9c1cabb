package file

import (
	"context"
	"testing"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistRepository_SaveResponse_Upserts(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	first := &models.ChecklistResponse{
		ID:              "resp-1",
		InstitutionID:   "inst-1",
		ChecklistItemID: "item-1",
		Answer:          models.AnswerNo,
	}
	require.NoError(t, p.Checklist().SaveResponse(ctx, first))

	// Answering the same item again replaces the prior response.
	second := &models.ChecklistResponse{
		ID:              "resp-2",
		InstitutionID:   "inst-1",
		ChecklistItemID: "item-1",
		Answer:          models.AnswerYes,
	}
	require.NoError(t, p.Checklist().SaveResponse(ctx, second))

	responses, err := p.Checklist().ResponsesByInstitution(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, models.AnswerYes, responses[0].Answer)
	assert.False(t, responses[0].UpdatedAt.IsZero())
}

func TestChecklistRepository_ResponsesByInstitution_Filters(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	require.NoError(t, p.Checklist().SaveResponse(ctx, &models.ChecklistResponse{
		ID: "r1", InstitutionID: "inst-1", ChecklistItemID: "item-1", Answer: models.AnswerYes,
	}))
	require.NoError(t, p.Checklist().SaveResponse(ctx, &models.ChecklistResponse{
		ID: "r2", InstitutionID: "inst-2", ChecklistItemID: "item-1", Answer: models.AnswerNo,
	}))

	responses, err := p.Checklist().ResponsesByInstitution(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "inst-1", responses[0].InstitutionID)
}

func TestScoreRepository_Latest_PicksNewestEpochPerComponent(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	older := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 1, 0)

	require.NoError(t, p.Scores().Save(ctx, &models.ComplianceScore{
		ID: "s1", InstitutionID: "inst-1",
		ComponentType: models.ComponentControlEnvironment,
		Score:         40, CalculatedAt: older,
	}))
	require.NoError(t, p.Scores().Save(ctx, &models.ComplianceScore{
		ID: "s2", InstitutionID: "inst-1",
		ComponentType: models.ComponentControlEnvironment,
		Score:         75, CalculatedAt: newer,
	}))
	require.NoError(t, p.Scores().Save(ctx, &models.ComplianceScore{
		ID: "s3", InstitutionID: "inst-1",
		ComponentType: models.ComponentMonitoring,
		Score:         20, CalculatedAt: older,
	}))

	latest, err := p.Scores().Latest(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, latest, 2)

	// Canonical component order: ambiente_control before supervision.
	assert.Equal(t, models.ComponentControlEnvironment, latest[0].ComponentType)
	assert.Equal(t, 75, latest[0].Score)
	assert.Equal(t, models.ComponentMonitoring, latest[1].ComponentType)
}

func TestScoreRepository_History_NewestFirst(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, score := range []int{40, 55, 75} {
		require.NoError(t, p.Scores().Save(ctx, &models.ComplianceScore{
			ID:            "epoch-" + string(rune('a'+i)),
			InstitutionID: "inst-1",
			ComponentType: models.ComponentRiskAssessment,
			Score:         score,
			CalculatedAt:  base.AddDate(0, 0, i),
		}))
	}

	history, err := p.Scores().History(ctx, "inst-1", models.ComponentRiskAssessment)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 75, history[0].Score)
	assert.Equal(t, 40, history[2].Score)
}

func TestWorkflowRepository_SaveAndGet_RoundTripsSteps(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	workflow := &models.Workflow{
		ID:            "wf-1",
		InstitutionID: "inst-1",
		ComponentType: models.ComponentControlActivities,
		Name:          "Matriz de controles",
		Status:        models.WorkflowStatusInProgress,
		Progress:      50,
		Steps: []*models.WorkflowStep{
			{ID: "step-1", WorkflowID: "wf-1", SequenceNumber: 1, Name: "Inventario", Status: models.StepStatusCompleted},
			{ID: "step-2", WorkflowID: "wf-1", SequenceNumber: 2, Name: "Documentación", Status: models.StepStatusNotStarted},
		},
	}
	require.NoError(t, p.Workflows().Save(ctx, workflow))

	loaded, err := p.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "Inventario", loaded.Steps[0].Name)
	assert.Equal(t, models.StepStatusCompleted, loaded.Steps[0].Status)
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)

	_, err := p.Workflows().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestDeviationRepository_FindByTrigger(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	deviation := &models.Deviation{
		ID:                    "dev-1",
		ExecutionAssessmentID: "assessment-1",
		WorkflowStepID:        "step-1",
		Type:                  models.DeviationTimeline,
		Severity:              models.SeverityMajor,
		Description:           "Etapa completada con retraso",
		Status:                models.DeviationOpen,
	}
	require.NoError(t, p.Deviations().Save(ctx, deviation))

	found, err := p.Deviations().FindByTrigger(ctx, "assessment-1", "step-1", models.DeviationTimeline)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", found.ID)

	_, err = p.Deviations().FindByTrigger(ctx, "assessment-1", "step-1", models.DeviationQuality)
	assert.ErrorIs(t, err, persistence.ErrDeviationNotFound)
}

func TestDeviationRepository_List_SeverityThenRecency(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.Deviations().Save(ctx, &models.Deviation{
		ID: "dev-minor", ExecutionAssessmentID: "a-1",
		Type: models.DeviationQuality, Severity: models.SeverityMinor,
		Description: "x", Status: models.DeviationOpen, IdentifiedAt: base.AddDate(0, 0, 5),
	}))
	require.NoError(t, p.Deviations().Save(ctx, &models.Deviation{
		ID: "dev-critical", ExecutionAssessmentID: "a-1",
		Type: models.DeviationTimeline, Severity: models.SeverityCritical,
		Description: "x", Status: models.DeviationOpen, IdentifiedAt: base,
	}))

	listed, err := p.Deviations().List(ctx, persistence.DeviationFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "dev-critical", listed[0].ID)

	onlyMinor, err := p.Deviations().List(ctx, persistence.DeviationFilter{Severity: models.SeverityMinor})
	require.NoError(t, err)
	require.Len(t, onlyMinor, 1)
	assert.Equal(t, "dev-minor", onlyMinor[0].ID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	tempDir := t.TempDir()
	p := NewPersistence(tempDir)

	require.NoError(t, p.HealthCheck(context.Background()))

	missing := NewPersistence(tempDir + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
