// Package web provides the HTTP handlers for the compliance API.
package web

import (
	"net/http"
	"time"

	"github.com/cumplia/sgci/pkg/cache"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	persistence persistence.Persistence
	compliance  *services.Compliance
	tracker     *services.Tracker
	assessor    *services.Assessor
	registry    *services.Registry
	engine      *services.Engine
	scoreCache  cache.ScoreCache
	validator   *validator.Validate
}

func NewAPIHandlers(
	p persistence.Persistence,
	compliance *services.Compliance,
	tracker *services.Tracker,
	assessor *services.Assessor,
	registry *services.Registry,
	engine *services.Engine,
	scoreCache cache.ScoreCache,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		compliance:  compliance,
		tracker:     tracker,
		assessor:    assessor,
		registry:    registry,
		engine:      engine,
		scoreCache:  scoreCache,
		validator:   validator,
	}
}

// GetComplianceScores returns the latest score per COSO component for an
// institution, read through the score cache.
func (h *APIHandlers) GetComplianceScores(c fiber.Ctx) error {
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		return badRequest(c, "institutionId query parameter is required")
	}

	if cached, ok, err := h.scoreCache.GetLatest(c.Context(), institutionID); err == nil && ok {
		return c.JSON(cached)
	}

	scores, err := h.compliance.LatestScores(c.Context(), institutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if scores == nil {
		scores = []*models.ComplianceScore{}
	}

	// Cache failures never fail the read.
	_ = h.scoreCache.SetLatest(c.Context(), institutionID, scores)

	return c.JSON(scores)
}

// RecalculateScores computes fresh scores for all five components.
func (h *APIHandlers) RecalculateScores(c fiber.Ctx) error {
	var req RecalculateScoresRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	scores, err := h.compliance.RecalculateAll(c.Context(), req.InstitutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	_ = h.scoreCache.Invalidate(c.Context(), req.InstitutionID)

	return c.JSON(scores)
}

// SaveChecklistResponse upserts one verification answer and drops the
// institution's cached scores.
func (h *APIHandlers) SaveChecklistResponse(c fiber.Ctx) error {
	var req SaveResponseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.persistence.Institutions().GetByID(c.Context(), req.InstitutionID); err != nil {
		return handleServiceError(c, err)
	}

	response := &models.ChecklistResponse{
		InstitutionID:   req.InstitutionID,
		ChecklistItemID: req.ChecklistItemID,
		Answer:          models.Answer(req.Answer),
		Comment:         req.Comment,
		EvidenceRef:     req.EvidenceRef,
		AnsweredBy:      req.AnsweredBy,
	}

	if err := h.persistence.Checklist().SaveResponse(c.Context(), response); err != nil {
		return internalError(c, err)
	}

	_ = h.scoreCache.Invalidate(c.Context(), req.InstitutionID)

	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetWorkflows lists an institution's workflows.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		return badRequest(c, "institutionId query parameter is required")
	}

	workflows, err := h.persistence.Workflows().GetByInstitution(c.Context(), institutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if workflows == nil {
		workflows = []*models.Workflow{}
	}

	return c.JSON(workflows)
}

// GetWorkflow returns one workflow with its steps.
func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow registers a new workflow; it always starts not_started
// with zero progress.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	steps := make([]*models.WorkflowStep, 0, len(req.Steps))
	for i, step := range req.Steps {
		sequence := step.SequenceNumber
		if sequence == 0 {
			sequence = i + 1
		}

		steps = append(steps, &models.WorkflowStep{
			SequenceNumber:    sequence,
			Name:              step.Name,
			ResponsibleRole:   step.ResponsibleRole,
			PlannedStartDate:  step.PlannedStartDate,
			PlannedEndDate:    step.PlannedEndDate,
			EstimatedDuration: step.EstimatedDuration,
		})
	}

	workflow := &models.Workflow{
		InstitutionID: req.InstitutionID,
		ComponentType: models.ComponentType(req.ComponentType),
		Name:          req.Name,
		Description:   req.Description,
		AssignedToID:  req.AssignedToID,
		DueDate:       req.DueDate,
		Steps:         steps,
	}

	created, err := h.tracker.CreateWorkflow(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// AddWorkflowStep inserts a step and renumbers the sequence.
func (h *APIHandlers) AddWorkflowStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req CreateStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step := &models.WorkflowStep{
		SequenceNumber:    req.SequenceNumber,
		Name:              req.Name,
		ResponsibleRole:   req.ResponsibleRole,
		PlannedStartDate:  req.PlannedStartDate,
		PlannedEndDate:    req.PlannedEndDate,
		EstimatedDuration: req.EstimatedDuration,
	}

	workflow, err := h.tracker.AddStep(c.Context(), id, step)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

// AdvanceStep moves one step to a new status and returns the recomputed
// workflow.
func (h *APIHandlers) AdvanceStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Step ID is required")
	}

	var req AdvanceStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.tracker.AdvanceStep(c.Context(), id, models.StepStatus(req.Status))
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(workflow)
}

// GetAlerts runs a fresh evaluation and returns the institution's current
// alert set.
func (h *APIHandlers) GetAlerts(c fiber.Ctx) error {
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		return badRequest(c, "institutionId query parameter is required")
	}

	alerts, err := h.engine.Evaluate(c.Context(), institutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if alerts == nil {
		alerts = []*models.Alert{}
	}

	return c.JSON(alerts)
}

// CheckAlerts is the explicit "run check" trigger.
func (h *APIHandlers) CheckAlerts(c fiber.Ctx) error {
	var req CheckAlertsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	alerts, err := h.engine.Evaluate(c.Context(), req.InstitutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if alerts == nil {
		alerts = []*models.Alert{}
	}

	return c.JSON(fiber.Map{
		"checked": true,
		"alerts":  alerts,
	})
}

// GetAssessments lists execution assessments across an institution's
// workflows.
func (h *APIHandlers) GetAssessments(c fiber.Ctx) error {
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		return badRequest(c, "institutionId query parameter is required")
	}

	assessments, err := h.assessor.AssessmentsByInstitution(c.Context(), institutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if assessments == nil {
		assessments = []*models.ExecutionAssessment{}
	}

	return c.JSON(assessments)
}

// GetAssessment returns one assessment with its step rows.
func (h *APIHandlers) GetAssessment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Assessment ID is required")
	}

	assessment, err := h.assessor.GetAssessment(c.Context(), id)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(assessment)
}

// CreateAssessment opens a draft assessment for a workflow.
func (h *APIHandlers) CreateAssessment(c fiber.Ctx) error {
	var req CreateAssessmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	assessment := &models.ExecutionAssessment{
		WorkflowID:      req.WorkflowID,
		AssessorID:      req.AssessorID,
		ExecutionStatus: models.ExecutionStatus(req.ExecutionStatus),
		OverallFindings: req.OverallFindings,
		Recommendations: req.Recommendations,
	}

	created, err := h.assessor.CreateAssessment(c.Context(), assessment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// AssessStep records one step evaluation on an assessment.
func (h *APIHandlers) AssessStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Assessment ID is required")
	}

	var req AssessStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step := &models.StepAssessment{
		WorkflowStepID:   req.WorkflowStepID,
		PlannedStartDate: req.PlannedStartDate,
		ActualStartDate:  req.ActualStartDate,
		PlannedEndDate:   req.PlannedEndDate,
		ActualEndDate:    req.ActualEndDate,
		DesignAdherence:  models.DesignAdherence(req.DesignAdherence),
		ExecutionQuality: models.ExecutionQuality(req.ExecutionQuality),
		OutputCompliance: models.OutputCompliance(req.OutputCompliance),
		Observations:     req.Observations,
	}

	assessment, err := h.assessor.AssessStep(c.Context(), id, step)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(assessment)
}

// SubmitAssessment moves a draft assessment to under_review.
func (h *APIHandlers) SubmitAssessment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Assessment ID is required")
	}

	assessment, err := h.assessor.SubmitForReview(c.Context(), id)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(assessment)
}

// FinalizeAssessment freezes an under_review assessment.
func (h *APIHandlers) FinalizeAssessment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Assessment ID is required")
	}

	assessment, err := h.assessor.Finalize(c.Context(), id)
	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(assessment)
}

// CreateAuditFinding records a manually identified deviation.
func (h *APIHandlers) CreateAuditFinding(c fiber.Ctx) error {
	var req CreateAuditFindingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	deviation := &models.Deviation{
		ExecutionAssessmentID: req.ExecutionAssessmentID,
		WorkflowStepID:        req.WorkflowStepID,
		Type:                  models.DeviationType(req.Type),
		Severity:              models.DeviationSeverity(req.Severity),
		Description:           req.Description,
		IdentifiedBy:          req.IdentifiedBy,
	}

	created, err := h.registry.Open(c.Context(), deviation)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetDeviations lists deviations, filterable by severity, status and type.
func (h *APIHandlers) GetDeviations(c fiber.Ctx) error {
	filter := persistence.DeviationFilter{
		Severity: models.DeviationSeverity(c.Query("severity")),
		Status:   models.DeviationStatus(c.Query("status")),
		Type:     models.DeviationType(c.Query("type")),
	}

	deviations, err := h.registry.List(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	if deviations == nil {
		deviations = []*models.Deviation{}
	}

	return c.JSON(deviations)
}

// UpdateDeviation applies one lifecycle transition.
func (h *APIHandlers) UpdateDeviation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Deviation ID is required")
	}

	var req UpdateDeviationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var (
		deviation *models.Deviation
		err       error
	)

	switch req.Action {
	case "under_review":
		deviation, err = h.registry.MarkUnderReview(c.Context(), id)
	case "resolve":
		deviation, err = h.registry.Resolve(c.Context(), id, req.Resolution, req.ResolvedBy)
	case "close":
		deviation, err = h.registry.Close(c.Context(), id)
	case "reopen":
		deviation, err = h.registry.Reopen(c.Context(), id)
	}

	if err != nil {
		return handleLookupError(c, err)
	}

	return c.JSON(deviation)
}

// GetEngagement returns the gamified progress summary for an institution.
func (h *APIHandlers) GetEngagement(c fiber.Ctx) error {
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		return badRequest(c, "institutionId query parameter is required")
	}

	summary, err := h.compliance.ComputeEngagement(c.Context(), institutionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

// HealthCheck reports persistence health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "SGCI API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "SGCI API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
