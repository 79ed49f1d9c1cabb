package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/events"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

// Engine evaluates workflow and compliance state against threshold rules
// and regenerates the institution's alert set. Evaluation is read, then
// compute, then emit; there is no partial state to roll back.
type Engine struct {
	persistence persistence.Persistence
	compliance  *Compliance
	eventBus    eventbus.EventPublisher
	thresholds  Thresholds
	logger      *slog.Logger
}

// NewEngine creates a new alert engine.
func NewEngine(p persistence.Persistence, compliance *Compliance, eb eventbus.EventPublisher, thresholds Thresholds, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		compliance:  compliance,
		eventBus:    eb,
		thresholds:  thresholds,
		logger:      logger,
	}
}

// Evaluate regenerates the alert set for one institution. Running it twice
// over unchanged state yields alerts with identical (type, workflow,
// priority) keys; ids differ per run.
func (e *Engine) Evaluate(ctx context.Context, institutionID string) ([]*models.Alert, error) {
	if _, err := e.persistence.Institutions().GetByID(ctx, institutionID); err != nil {
		return nil, err
	}

	workflows, err := e.persistence.Workflows().GetByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	assessments, err := e.persistence.Assessments().GetByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	overallProgress, err := e.compliance.ComputeOverallProgress(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	underReview := make(map[string]bool)

	for _, assessment := range assessments {
		if assessment.Status == models.AssessmentStatusUnderReview {
			underReview[assessment.WorkflowID] = true
		}
	}

	now := time.Now().UTC()
	alerts := []*models.Alert{}

	for _, workflow := range workflows {
		alerts = append(alerts, e.evaluateWorkflow(workflow, underReview[workflow.ID], now)...)
	}

	alerts = append(alerts, e.evaluateMilestones(institutionID, overallProgress, now)...)

	alerts = dedupeAlerts(alerts)

	for _, alert := range alerts {
		e.publishAlert(ctx, alert)
	}

	return alerts, nil
}

func (e *Engine) evaluateWorkflow(workflow *models.Workflow, hasReview bool, now time.Time) []*models.Alert {
	var alerts []*models.Alert

	terminal := workflow.Status == models.WorkflowStatusCompleted || workflow.Status == models.WorkflowStatusCancelled

	if workflow.DueDate != nil && !terminal {
		overdue := workflow.DueDate.Before(now)
		window := time.Duration(e.thresholds.DeadlineWindowDays) * 24 * time.Hour

		switch {
		case overdue:
			alerts = append(alerts, e.newAlert(workflow.InstitutionID, workflow.ID,
				models.AlertOverdue, models.PriorityHigh,
				"Flujo de trabajo vencido",
				fmt.Sprintf("El flujo %q venció el %s y sigue sin completarse", workflow.Name, workflow.DueDate.Format("2006-01-02")),
				now))
		case workflow.DueDate.Sub(now) <= window:
			// Overdue supersedes deadline_approaching for the same workflow.
			alerts = append(alerts, e.newAlert(workflow.InstitutionID, workflow.ID,
				models.AlertDeadlineApproaching, models.PriorityMedium,
				"Fecha límite próxima",
				fmt.Sprintf("El flujo %q vence el %s", workflow.Name, workflow.DueDate.Format("2006-01-02")),
				now))
		}
	}

	if workflow.Status == models.WorkflowStatusInProgress {
		staleAfter := time.Duration(e.thresholds.StaleDays) * 24 * time.Hour

		if now.Sub(workflow.LastStepChange()) > staleAfter {
			alerts = append(alerts, e.newAlert(workflow.InstitutionID, workflow.ID,
				models.AlertStaleActivity, models.PriorityMedium,
				"Actividad estancada",
				fmt.Sprintf("El flujo %q no registra cambios de etapa en los últimos %d días", workflow.Name, e.thresholds.StaleDays),
				now))
		}
	}

	if !terminal && workflow.PendingSteps() > e.thresholds.MaxPendingSteps {
		alerts = append(alerts, e.newAlert(workflow.InstitutionID, workflow.ID,
			models.AlertTooManyPending, models.PriorityMedium,
			"Demasiadas etapas pendientes",
			fmt.Sprintf("El flujo %q acumula %d etapas pendientes", workflow.Name, workflow.PendingSteps()),
			now))
	}

	if hasReview {
		alerts = append(alerts, e.newAlert(workflow.InstitutionID, workflow.ID,
			models.AlertReviewRequired, models.PriorityHigh,
			"Evaluación pendiente de revisión",
			fmt.Sprintf("El flujo %q tiene una evaluación de ejecución en revisión", workflow.Name),
			now))
	}

	return alerts
}

// evaluateMilestones produces the institution-level singleton alerts tied to
// overall compliance progress.
func (e *Engine) evaluateMilestones(institutionID string, overallProgress int, now time.Time) []*models.Alert {
	switch {
	case overallProgress < e.thresholds.SetupMilestonePercent:
		return []*models.Alert{e.newAlert(institutionID, "",
			models.AlertSetupNudge, models.PriorityLow,
			"Implementación inicial incompleta",
			fmt.Sprintf("El avance general es %d%%; complete la configuración inicial del sistema de control interno", overallProgress),
			now)}
	case overallProgress >= e.thresholds.NearCompletionPercent:
		return []*models.Alert{e.newAlert(institutionID, "",
			models.AlertNearCompletion, models.PriorityLow,
			"Implementación casi completa",
			fmt.Sprintf("El avance general alcanzó %d%%", overallProgress),
			now)}
	default:
		return nil
	}
}

func (e *Engine) newAlert(institutionID, workflowID string, at models.AlertType, priority models.AlertPriority, title, description string, now time.Time) *models.Alert {
	return &models.Alert{
		ID:            newID(),
		InstitutionID: institutionID,
		WorkflowID:    workflowID,
		Type:          at,
		Priority:      priority,
		Title:         title,
		Description:   description,
		CreatedAt:     now,
	}
}

func dedupeAlerts(alerts []*models.Alert) []*models.Alert {
	seen := make(map[string]bool, len(alerts))
	out := make([]*models.Alert, 0, len(alerts))

	for _, alert := range alerts {
		if seen[alert.Key()] {
			continue
		}

		seen[alert.Key()] = true

		out = append(out, alert)
	}

	return out
}

func (e *Engine) publishAlert(ctx context.Context, alert *models.Alert) {
	if e.eventBus == nil {
		return
	}

	event := events.AlertRaised{
		BaseEvent: events.BaseEvent{
			ID:            alert.ID,
			Type:          events.AlertRaisedEvent,
			Timestamp:     alert.CreatedAt,
			InstitutionID: alert.InstitutionID,
		},
		Alert: alert,
	}

	err := e.eventBus.Publish(ctx, alert.InstitutionID, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish alert.raised event",
			"alert_type", alert.Type, "workflow_id", alert.WorkflowID, "error", err)
	}
}
