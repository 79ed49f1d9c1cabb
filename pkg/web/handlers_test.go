package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cumplia/sgci/pkg/cache"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/persistence/file"
	"github.com/cumplia/sgci/pkg/services"
	"github.com/cumplia/sgci/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app         *fiber.App
	persistence persistence.Persistence
	tracker     *services.Tracker
	assessor    *services.Assessor
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	compliance := services.NewCompliance(store, nil, logger)
	tracker := services.NewTracker(store, nil, logger)
	assessor := services.NewAssessor(store, nil, services.DefaultThresholds(), logger)
	registry := services.NewRegistry(store, nil, logger)
	engine := services.NewEngine(store, compliance, nil, services.DefaultThresholds(), logger)

	handlers := web.NewAPIHandlers(
		store,
		compliance,
		tracker,
		assessor,
		registry,
		engine,
		cache.NewNoOp(),
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return &testEnv{
		app:         app,
		persistence: store,
		tracker:     tracker,
		assessor:    assessor,
	}
}

func (env *testEnv) seedInstitution(t *testing.T) *models.Institution {
	t.Helper()

	institution := &models.Institution{
		ID:   "inst-1",
		Name: "Municipalidad de San José",
		Type: models.InstitutionTypeMunicipality,
	}

	require.NoError(t, env.persistence.Institutions().Save(t.Context(), institution))

	return institution
}

func (env *testEnv) request(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var value T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&value))
	require.NoError(t, resp.Body.Close())

	return value
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	env := setupTestApp(t)
	env.seedInstitution(t)

	resp := env.request(t, http.MethodPost, "/api/workflows", web.CreateWorkflowRequest{
		InstitutionID: "inst-1",
		ComponentType: "ambiente_control",
		Name:          "Implementación ambiente de control",
		Steps: []web.CreateStepRequest{
			{Name: "Diagnóstico"},
			{Name: "Plan de acción"},
		},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	workflow := decode[models.Workflow](t, resp)
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, models.WorkflowStatusNotStarted, workflow.Status)
	assert.Equal(t, 0, workflow.Progress)
	assert.Len(t, workflow.Steps, 2)
}

func TestCreateWorkflowEndpoint_UnknownInstitutionIs400(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodPost, "/api/workflows", web.CreateWorkflowRequest{
		InstitutionID: "missing",
		ComponentType: "ambiente_control",
		Name:          "Workflow sin institución",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflowEndpoint_MalformedBody(t *testing.T) {
	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/workflows", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflowEndpoint_NotFoundIs404(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/api/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetWorkflowsEndpoint_EmptyIsArray(t *testing.T) {
	env := setupTestApp(t)
	env.seedInstitution(t)

	resp := env.request(t, http.MethodGet, "/api/workflows?institutionId=inst-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))
}

func TestAdvanceStepEndpoint(t *testing.T) {
	env := setupTestApp(t)
	institution := env.seedInstitution(t)

	workflow, err := env.tracker.CreateWorkflow(t.Context(), &models.Workflow{
		InstitutionID: institution.ID,
		ComponentType: models.ComponentMonitoring,
		Name:          "Supervisión continua",
		Steps:         []*models.WorkflowStep{{Name: "Etapa única", SequenceNumber: 1}},
	})
	require.NoError(t, err)

	resp := env.request(t, http.MethodPatch, "/api/steps/"+workflow.Steps[0].ID, web.AdvanceStepRequest{
		Status: "completed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[models.Workflow](t, resp)
	assert.Equal(t, 100, updated.Progress)
	assert.Equal(t, models.WorkflowStatusCompleted, updated.Status)
}

func TestAdvanceStepEndpoint_InvalidStatus(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodPatch, "/api/steps/some-step", web.AdvanceStepRequest{
		Status: "paused",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComplianceScoresEndpoint(t *testing.T) {
	env := setupTestApp(t)
	env.seedInstitution(t)

	require.NoError(t, env.persistence.Checklist().SaveItem(t.Context(), &models.ChecklistItem{
		ID:            "ci-1",
		Code:          "AC-01",
		Requirement:   "r",
		Question:      "q",
		ComponentType: models.ComponentControlEnvironment,
	}))

	resp := env.request(t, http.MethodPost, "/api/checklist-responses", web.SaveResponseRequest{
		InstitutionID:   "inst-1",
		ChecklistItemID: "ci-1",
		Answer:          "yes",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/compliance-scores/recalculate", web.RecalculateScoresRequest{
		InstitutionID: "inst-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scores := decode[[]*models.ComplianceScore](t, resp)
	require.Len(t, scores, 5)
	assert.Equal(t, 100, scores[0].Score)

	resp = env.request(t, http.MethodGet, "/api/compliance-scores?institutionId=inst-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	latest := decode[[]*models.ComplianceScore](t, resp)
	assert.Len(t, latest, 5)
}

func TestAlertsCheckEndpoint(t *testing.T) {
	env := setupTestApp(t)
	env.seedInstitution(t)

	resp := env.request(t, http.MethodPost, "/api/alerts/check", web.CheckAlertsRequest{
		InstitutionID: "inst-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, "true", string(result["checked"]))

	var alerts []*models.Alert

	require.NoError(t, json.Unmarshal(result["alerts"], &alerts))
	// A fresh institution sits below the setup milestone.
	require.NotEmpty(t, alerts)
	assert.Equal(t, models.AlertSetupNudge, alerts[0].Type)
}

func TestAlertsCheckEndpoint_UnknownInstitutionIs400(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodPost, "/api/alerts/check", web.CheckAlertsRequest{
		InstitutionID: "missing",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentLifecycleEndpoints(t *testing.T) {
	env := setupTestApp(t)
	institution := env.seedInstitution(t)

	workflow, err := env.tracker.CreateWorkflow(t.Context(), &models.Workflow{
		InstitutionID: institution.ID,
		ComponentType: models.ComponentControlActivities,
		Name:          "Actividades de control",
		Steps:         []*models.WorkflowStep{{Name: "Etapa 1", SequenceNumber: 1}},
	})
	require.NoError(t, err)

	resp := env.request(t, http.MethodPost, "/api/workflow-execution-assessments", web.CreateAssessmentRequest{
		WorkflowID: workflow.ID,
		AssessorID: "auditor-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assessment := decode[models.ExecutionAssessment](t, resp)
	assert.Equal(t, models.AssessmentStatusDraft, assessment.Status)

	resp = env.request(t, http.MethodPost, "/api/workflow-execution-assessments/"+assessment.ID+"/steps", web.AssessStepRequest{
		WorkflowStepID:   workflow.Steps[0].ID,
		DesignAdherence:  "fully_compliant",
		ExecutionQuality: "excellent",
		OutputCompliance: "meets_requirements",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/workflow-execution-assessments/"+assessment.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/workflow-execution-assessments/"+assessment.ID+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	final := decode[models.ExecutionAssessment](t, resp)
	assert.Equal(t, models.AssessmentStatusFinal, final.Status)

	// Mutating a final assessment is a conflict.
	resp = env.request(t, http.MethodPost, "/api/workflow-execution-assessments/"+assessment.ID+"/steps", web.AssessStepRequest{
		WorkflowStepID:   workflow.Steps[0].ID,
		DesignAdherence:  "fully_compliant",
		ExecutionQuality: "good",
		OutputCompliance: "meets_requirements",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuditFindingAndDeviationEndpoints(t *testing.T) {
	env := setupTestApp(t)
	institution := env.seedInstitution(t)

	workflow, err := env.tracker.CreateWorkflow(t.Context(), &models.Workflow{
		InstitutionID: institution.ID,
		ComponentType: models.ComponentRiskAssessment,
		Name:          "Evaluación de riesgos",
		Steps:         []*models.WorkflowStep{{Name: "Etapa 1", SequenceNumber: 1}},
	})
	require.NoError(t, err)

	assessment, err := env.assessor.CreateAssessment(t.Context(), &models.ExecutionAssessment{
		WorkflowID: workflow.ID,
		AssessorID: "auditor-1",
	})
	require.NoError(t, err)

	resp := env.request(t, http.MethodPost, "/api/audit-findings", web.CreateAuditFindingRequest{
		ExecutionAssessmentID: assessment.ID,
		Type:                  "responsibility",
		Severity:              "minor",
		Description:           "Responsable no designado formalmente",
		IdentifiedBy:          "auditor-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	deviation := decode[models.Deviation](t, resp)
	assert.Equal(t, models.DeviationOpen, deviation.Status)

	resp = env.request(t, http.MethodGet, "/api/deviations?severity=minor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listed := decode[[]*models.Deviation](t, resp)
	require.Len(t, listed, 1)

	// Resolving without text fails; with text succeeds.
	resp = env.request(t, http.MethodPatch, "/api/deviations/"+deviation.ID, web.UpdateDeviationRequest{
		Action: "resolve",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPatch, "/api/deviations/"+deviation.ID, web.UpdateDeviationRequest{
		Action:     "resolve",
		Resolution: "Se designó al responsable",
		ResolvedBy: "supervisor-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resolved := decode[models.Deviation](t, resp)
	assert.Equal(t, models.DeviationResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
