package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/events"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

// Tracker owns workflow and step lifecycle state. It is the sole writer of
// Workflow.status and Workflow.progress; the assessor and alert engine only
// signal transitions through it.
type Tracker struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

// NewTracker creates a new workflow state tracker.
func NewTracker(p persistence.Persistence, eb eventbus.EventPublisher, logger *slog.Logger) *Tracker {
	return &Tracker{
		persistence: p,
		eventBus:    eb,
		logger:      logger,
	}
}

// CreateWorkflow registers a new component implementation workflow. It
// always starts not_started with zero progress, whatever the caller sent.
func (t *Tracker) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if !models.IsValidComponent(workflow.ComponentType) {
		return nil, NewValidationError("CreateWorkflow", "INVALID_COMPONENT",
			fmt.Sprintf("unknown component type %q", workflow.ComponentType), ErrInvalidComponent)
	}

	if _, err := t.persistence.Institutions().GetByID(ctx, workflow.InstitutionID); err != nil {
		return nil, err
	}

	workflow.ID = newID()
	workflow.Status = models.WorkflowStatusNotStarted
	workflow.Progress = 0
	workflow.CompletedAt = nil

	if workflow.Steps == nil {
		workflow.Steps = []*models.WorkflowStep{}
	}

	now := time.Now().UTC()
	for _, step := range workflow.Steps {
		if step.ID == "" {
			step.ID = newID()
		}

		step.WorkflowID = workflow.ID
		step.Status = models.StepStatusNotStarted
		step.StatusChangedAt = now
	}

	renumberSteps(workflow.Steps)
	t.recompute(workflow)

	err := t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// AddStep appends or inserts a step and renumbers the sequence. Adding a
// step to a completed workflow reopens it.
func (t *Tracker) AddStep(ctx context.Context, workflowID string, step *models.WorkflowStep) (*models.Workflow, error) {
	workflow, err := t.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusCancelled {
		return nil, NewValidationError("AddStep", "WORKFLOW_CANCELLED",
			fmt.Sprintf("workflow %s is cancelled", workflowID), ErrWorkflowCancelled)
	}

	if step.ID == "" {
		step.ID = newID()
	}

	if step.Status == "" {
		step.Status = models.StepStatusNotStarted
	}

	step.WorkflowID = workflowID
	step.StatusChangedAt = time.Now().UTC()

	if step.SequenceNumber <= 0 || step.SequenceNumber > len(workflow.Steps) {
		step.SequenceNumber = len(workflow.Steps) + 1
		workflow.Steps = append(workflow.Steps, step)
	} else {
		// Insert before the step currently holding the requested position.
		idx := step.SequenceNumber - 1
		workflow.Steps = append(workflow.Steps[:idx], append([]*models.WorkflowStep{step}, workflow.Steps[idx:]...)...)
	}

	renumberSteps(workflow.Steps)
	t.recompute(workflow)

	err = t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// RemoveStep deletes a step and renumbers the survivors.
func (t *Tracker) RemoveStep(ctx context.Context, workflowID, stepID string) (*models.Workflow, error) {
	workflow, err := t.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	steps := make([]*models.WorkflowStep, 0, len(workflow.Steps))
	found := false

	for _, step := range workflow.Steps {
		if step.ID == stepID {
			found = true

			continue
		}

		steps = append(steps, step)
	}

	if !found {
		return nil, persistence.NewWorkflowError("RemoveStep", workflowID, persistence.ErrStepNotFound)
	}

	workflow.Steps = steps

	renumberSteps(workflow.Steps)
	t.recompute(workflow)

	err = t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// AdvanceStep moves a step to a new status and recomputes the owning
// workflow's progress and status. Un-completing a step on a completed
// workflow reopens it.
func (t *Tracker) AdvanceStep(ctx context.Context, stepID string, newStatus models.StepStatus) (*models.Workflow, error) {
	switch newStatus {
	case models.StepStatusNotStarted, models.StepStatusInProgress, models.StepStatusCompleted:
	default:
		return nil, NewValidationError("AdvanceStep", "INVALID_STEP_STATUS",
			fmt.Sprintf("unknown step status %q", newStatus), ErrInvalidStepStatus)
	}

	workflow, step, err := t.findStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusCancelled {
		return nil, NewValidationError("AdvanceStep", "WORKFLOW_CANCELLED",
			fmt.Sprintf("workflow %s is cancelled", workflow.ID), ErrWorkflowCancelled)
	}

	wasCompleted := workflow.Status == models.WorkflowStatusCompleted

	if step.Status != newStatus {
		step.Status = newStatus
		step.StatusChangedAt = time.Now().UTC()
	}

	t.recompute(workflow)

	err = t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	if !wasCompleted && workflow.Status == models.WorkflowStatusCompleted {
		t.publishCompleted(ctx, workflow)
	}

	return workflow, nil
}

// RecomputeWorkflowProgress re-derives progress and status from the
// workflow's current steps and persists the result.
func (t *Tracker) RecomputeWorkflowProgress(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := t.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := validateSequence(workflow.Steps); err != nil {
		return nil, NewValidationError("RecomputeWorkflowProgress", "INCONSISTENT_STATE", err.Error(), err)
	}

	t.recompute(workflow)

	err = t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// SignalStatus applies an externally driven transition into delayed or
// cancelled. Progress is left untouched; the assessor and alert engine own
// these signals.
func (t *Tracker) SignalStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	if status != models.WorkflowStatusDelayed && status != models.WorkflowStatusCancelled {
		return nil, NewValidationError("SignalStatus", "INVALID_TRANSITION",
			fmt.Sprintf("only delayed and cancelled may be signalled externally, got %q", status), ErrInvalidTransition)
	}

	workflow, err := t.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.Status = status

	err = t.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (t *Tracker) findStep(ctx context.Context, stepID string) (*models.Workflow, *models.WorkflowStep, error) {
	workflows, err := t.persistence.Workflows().GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, workflow := range workflows {
		for _, step := range workflow.Steps {
			if step.ID == stepID {
				return workflow, step, nil
			}
		}
	}

	return nil, nil, persistence.ErrStepNotFound
}

// recompute derives progress and status from step state. Delayed survives
// recomputation until every step completes; cancelled always survives.
func (t *Tracker) recompute(workflow *models.Workflow) {
	total := len(workflow.Steps)

	if total == 0 {
		workflow.Progress = 0

		if workflow.Status != models.WorkflowStatusDelayed && workflow.Status != models.WorkflowStatusCancelled {
			workflow.Status = models.WorkflowStatusNotStarted
		}

		workflow.CompletedAt = nil

		return
	}

	completed := 0
	anyStarted := false

	for _, step := range workflow.Steps {
		if step.Status == models.StepStatusCompleted {
			completed++
		}

		if step.Status != models.StepStatusNotStarted {
			anyStarted = true
		}
	}

	workflow.Progress = int(math.Round(100 * float64(completed) / float64(total)))

	allCompleted := completed == total

	switch {
	case allCompleted && workflow.Progress == 100 && workflow.Status != models.WorkflowStatusCancelled:
		workflow.Status = models.WorkflowStatusCompleted

		if workflow.CompletedAt == nil {
			now := time.Now().UTC()
			workflow.CompletedAt = &now
		}
	case workflow.Status == models.WorkflowStatusCancelled:
		// Terminal, untouched.
	case workflow.Status == models.WorkflowStatusDelayed:
		workflow.CompletedAt = nil
	case workflow.Status == models.WorkflowStatusCompleted:
		// Reopened: a step was added or un-completed.
		workflow.Status = models.WorkflowStatusInProgress
		workflow.CompletedAt = nil
	case anyStarted:
		workflow.Status = models.WorkflowStatusInProgress
		workflow.CompletedAt = nil
	default:
		workflow.Status = models.WorkflowStatusNotStarted
		workflow.CompletedAt = nil
	}
}

// renumberSteps rewrites sequence numbers as a dense 1..N ordering,
// preserving the current relative order.
func renumberSteps(steps []*models.WorkflowStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].SequenceNumber < steps[j].SequenceNumber
	})

	for i, step := range steps {
		step.SequenceNumber = i + 1
	}
}

// validateSequence checks the dense-ordering invariant on externally
// supplied step data.
func validateSequence(steps []*models.WorkflowStep) error {
	seen := make(map[int]bool, len(steps))

	for _, step := range steps {
		if step.SequenceNumber < 1 || step.SequenceNumber > len(steps) || seen[step.SequenceNumber] {
			return fmt.Errorf("%w: sequence %d out of range or duplicated", ErrNonContiguousSequence, step.SequenceNumber)
		}

		seen[step.SequenceNumber] = true
	}

	return nil
}

func (t *Tracker) publishCompleted(ctx context.Context, workflow *models.Workflow) {
	if t.eventBus == nil {
		return
	}

	event := events.WorkflowCompleted{
		BaseEvent: events.BaseEvent{
			ID:            workflow.ID,
			Type:          events.WorkflowCompletedEvent,
			Timestamp:     time.Now().UTC(),
			InstitutionID: workflow.InstitutionID,
		},
		WorkflowID:    workflow.ID,
		ComponentType: workflow.ComponentType,
	}

	err := t.eventBus.Publish(ctx, workflow.InstitutionID, event)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to publish workflow.completed event",
			"workflow_id", workflow.ID, "error", err)
	}
}
