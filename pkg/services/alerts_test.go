package services

import (
	"testing"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(p *file.Persistence) *Engine {
	compliance := NewCompliance(p, nil, testLogger())

	return NewEngine(p, compliance, nil, DefaultThresholds(), testLogger())
}

func alertTypes(alerts []*models.Alert) map[models.AlertType]int {
	types := make(map[models.AlertType]int)

	for _, alert := range alerts {
		types[alert.Type]++
	}

	return types
}

func findAlert(alerts []*models.Alert, at models.AlertType) *models.Alert {
	for _, alert := range alerts {
		if alert.Type == at {
			return alert
		}
	}

	return nil
}

func TestEngine_Evaluate_UnknownInstitution(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)

	_, err := engine.Evaluate(t.Context(), "missing")
	assert.Error(t, err)
}

func TestEngine_Evaluate_OverdueSuppressesDeadlineApproaching(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	workflow := seedWorkflow(t, tracker, institution.ID, "Uno", "Dos")
	dueDate := time.Now().UTC().Add(-10 * 24 * time.Hour)
	workflow.DueDate = &dueDate

	_, err := tracker.AdvanceStep(t.Context(), workflow.Steps[0].ID, models.StepStatusInProgress)
	require.NoError(t, err)

	// Reload to keep the in_progress status, then stamp the due date.
	current, err := persistenceStore.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	current.DueDate = &dueDate
	require.NoError(t, persistenceStore.Workflows().Save(t.Context(), current))

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	types := alertTypes(alerts)
	assert.Equal(t, 1, types[models.AlertOverdue])
	assert.Zero(t, types[models.AlertDeadlineApproaching])

	overdue := findAlert(alerts, models.AlertOverdue)
	require.NotNil(t, overdue)
	assert.Equal(t, models.PriorityHigh, overdue.Priority)
	assert.Equal(t, workflow.ID, overdue.WorkflowID)
}

func TestEngine_Evaluate_DeadlineApproaching(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	workflow := seedWorkflow(t, tracker, institution.ID, "Uno")
	dueDate := time.Now().UTC().Add(3 * 24 * time.Hour)

	current, err := persistenceStore.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	current.DueDate = &dueDate
	require.NoError(t, persistenceStore.Workflows().Save(t.Context(), current))

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	deadline := findAlert(alerts, models.AlertDeadlineApproaching)
	require.NotNil(t, deadline)
	assert.Equal(t, models.PriorityMedium, deadline.Priority)
	assert.Nil(t, findAlert(alerts, models.AlertOverdue))
}

func TestEngine_Evaluate_StaleActivity(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	workflow := seedWorkflow(t, tracker, institution.ID, "Uno", "Dos")

	_, err := tracker.AdvanceStep(t.Context(), workflow.Steps[0].ID, models.StepStatusInProgress)
	require.NoError(t, err)

	// Age every step change past the stale threshold.
	current, err := persistenceStore.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)

	old := time.Now().UTC().Add(-20 * 24 * time.Hour)
	for _, step := range current.Steps {
		step.StatusChangedAt = old
	}

	require.NoError(t, persistenceStore.Workflows().Save(t.Context(), current))

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	stale := findAlert(alerts, models.AlertStaleActivity)
	require.NotNil(t, stale)
	assert.Equal(t, models.PriorityMedium, stale.Priority)
}

func TestEngine_Evaluate_TooManyPending(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	seedWorkflow(t, tracker, institution.ID,
		"Uno", "Dos", "Tres", "Cuatro", "Cinco", "Seis")

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	pending := findAlert(alerts, models.AlertTooManyPending)
	require.NotNil(t, pending)
	assert.Equal(t, models.PriorityMedium, pending.Priority)
}

func TestEngine_Evaluate_ReviewRequired(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	assessor, workflow, assessment := seedAssessment(t, persistenceStore)

	_, err := assessor.SubmitForReview(t.Context(), assessment.ID)
	require.NoError(t, err)

	alerts, err := engine.Evaluate(t.Context(), workflow.InstitutionID)
	require.NoError(t, err)

	review := findAlert(alerts, models.AlertReviewRequired)
	require.NotNil(t, review)
	assert.Equal(t, models.PriorityHigh, review.Priority)
	assert.Equal(t, workflow.ID, review.WorkflowID)
}

func TestEngine_Evaluate_SetupNudgeBelowMilestone(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	nudge := findAlert(alerts, models.AlertSetupNudge)
	require.NotNil(t, nudge)
	assert.Empty(t, nudge.WorkflowID)
	assert.Nil(t, findAlert(alerts, models.AlertNearCompletion))
}

func TestEngine_Evaluate_NearCompletionAboveMilestone(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)

	// Answer one item yes in every component: overall progress 100.
	for i, ct := range models.COSOComponents {
		id := string(rune('a' + i))
		seedChecklistItem(t, persistenceStore, id, ct)
		seedResponse(t, persistenceStore, institution.ID, id, models.AnswerYes)
	}

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	near := findAlert(alerts, models.AlertNearCompletion)
	require.NotNil(t, near)
	assert.Nil(t, findAlert(alerts, models.AlertSetupNudge))
}

func TestEngine_Evaluate_Idempotent(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	workflow := seedWorkflow(t, tracker, institution.ID, "Uno")
	dueDate := time.Now().UTC().Add(-2 * 24 * time.Hour)

	current, err := persistenceStore.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	current.DueDate = &dueDate
	require.NoError(t, persistenceStore.Workflows().Save(t.Context(), current))

	first, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	second, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))

	firstKeys := make([]string, 0, len(first))
	secondKeys := make([]string, 0, len(second))

	for i := range first {
		firstKeys = append(firstKeys, first[i].Key())
		secondKeys = append(secondKeys, second[i].Key())
	}

	assert.ElementsMatch(t, firstKeys, secondKeys)
}

func TestEngine_Evaluate_CompletedWorkflowRaisesNothing(t *testing.T) {
	persistenceStore := file.NewPersistence(t.TempDir())
	engine := newEngine(persistenceStore)
	institution := seedInstitution(t, persistenceStore)
	tracker := NewTracker(persistenceStore, nil, testLogger())

	workflow := seedWorkflow(t, tracker, institution.ID, "Uno")

	_, err := tracker.AdvanceStep(t.Context(), workflow.Steps[0].ID, models.StepStatusCompleted)
	require.NoError(t, err)

	dueDate := time.Now().UTC().Add(-10 * 24 * time.Hour)
	current, err := persistenceStore.Workflows().GetByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	current.DueDate = &dueDate
	require.NoError(t, persistenceStore.Workflows().Save(t.Context(), current))

	alerts, err := engine.Evaluate(t.Context(), institution.ID)
	require.NoError(t, err)

	assert.Nil(t, findAlert(alerts, models.AlertOverdue))
	assert.Nil(t, findAlert(alerts, models.AlertDeadlineApproaching))
}
