package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the API surface under /api.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	api := app.Group("/api")

	api.Get("/compliance-scores", handlers.GetComplianceScores)
	api.Post("/compliance-scores/recalculate", handlers.RecalculateScores)
	api.Post("/checklist-responses", handlers.SaveChecklistResponse)

	api.Get("/workflows", handlers.GetWorkflows)
	api.Post("/workflows", handlers.CreateWorkflow)
	api.Get("/workflows/:id", handlers.GetWorkflow)
	api.Post("/workflows/:id/steps", handlers.AddWorkflowStep)
	api.Patch("/steps/:id", handlers.AdvanceStep)

	api.Get("/alerts", handlers.GetAlerts)
	api.Post("/alerts/check", handlers.CheckAlerts)

	api.Get("/workflow-execution-assessments", handlers.GetAssessments)
	api.Post("/workflow-execution-assessments", handlers.CreateAssessment)
	api.Get("/workflow-execution-assessments/:id", handlers.GetAssessment)
	api.Post("/workflow-execution-assessments/:id/steps", handlers.AssessStep)
	api.Post("/workflow-execution-assessments/:id/submit", handlers.SubmitAssessment)
	api.Post("/workflow-execution-assessments/:id/finalize", handlers.FinalizeAssessment)

	api.Post("/audit-findings", handlers.CreateAuditFinding)
	api.Get("/deviations", handlers.GetDeviations)
	api.Patch("/deviations/:id", handlers.UpdateDeviation)

	api.Get("/engagement", handlers.GetEngagement)

	app.Get("/health", handlers.HealthCheck)
}
