package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/events"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

// Registry tracks the resolution lifecycle of deviations. Transitions run
// open -> under_review -> resolved -> closed; reopen is the only backward
// move and only from closed.
type Registry struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

// NewRegistry creates a new deviation registry.
func NewRegistry(p persistence.Persistence, eb eventbus.EventPublisher, logger *slog.Logger) *Registry {
	return &Registry{
		persistence: p,
		eventBus:    eb,
		logger:      logger,
	}
}

// Open records a manually entered deviation. When a deviation for the same
// (assessment, step, type) trigger already exists, that one is returned
// instead of a duplicate.
func (r *Registry) Open(ctx context.Context, deviation *models.Deviation) (*models.Deviation, error) {
	if _, err := r.persistence.Assessments().GetByID(ctx, deviation.ExecutionAssessmentID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(deviation.Description) == "" {
		return nil, NewValidationError("OpenDeviation", "INVALID_REQUEST",
			"description is required", ErrInvalidRequest)
	}

	if deviation.WorkflowStepID != "" {
		existing, err := r.persistence.Deviations().FindByTrigger(ctx,
			deviation.ExecutionAssessmentID, deviation.WorkflowStepID, deviation.Type)
		if err != nil && !errors.Is(err, persistence.ErrDeviationNotFound) {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	deviation.ID = newID()
	deviation.Status = models.DeviationOpen
	deviation.IdentifiedAt = time.Now().UTC()
	deviation.Resolution = ""
	deviation.ResolvedAt = nil
	deviation.ResolvedBy = ""

	err := r.persistence.Deviations().Save(ctx, deviation)
	if err != nil {
		return nil, err
	}

	r.publishOpened(ctx, deviation)

	return deviation, nil
}

// MarkUnderReview moves an open deviation into review.
func (r *Registry) MarkUnderReview(ctx context.Context, id string) (*models.Deviation, error) {
	return r.transition(ctx, "MarkUnderReview", id, models.DeviationUnderReview,
		models.DeviationOpen)
}

// Resolve records the resolution and moves the deviation to resolved. A
// blank resolution text is rejected.
func (r *Registry) Resolve(ctx context.Context, id, resolution, resolvedBy string) (*models.Deviation, error) {
	if strings.TrimSpace(resolution) == "" {
		return nil, NewValidationError("ResolveDeviation", "EMPTY_RESOLUTION",
			"resolution text is required", ErrEmptyResolution)
	}

	deviation, err := r.transition(ctx, "ResolveDeviation", id, models.DeviationResolved,
		models.DeviationOpen, models.DeviationUnderReview)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deviation.Resolution = resolution
	deviation.ResolvedAt = &now
	deviation.ResolvedBy = resolvedBy

	err = r.persistence.Deviations().Save(ctx, deviation)
	if err != nil {
		return nil, err
	}

	r.publishResolved(ctx, deviation)

	return deviation, nil
}

// Close moves a resolved deviation to closed.
func (r *Registry) Close(ctx context.Context, id string) (*models.Deviation, error) {
	return r.transition(ctx, "CloseDeviation", id, models.DeviationClosed,
		models.DeviationResolved)
}

// Reopen moves a closed deviation back to open, clearing its resolution.
func (r *Registry) Reopen(ctx context.Context, id string) (*models.Deviation, error) {
	deviation, err := r.transition(ctx, "ReopenDeviation", id, models.DeviationOpen,
		models.DeviationClosed)
	if err != nil {
		return nil, err
	}

	deviation.Resolution = ""
	deviation.ResolvedAt = nil
	deviation.ResolvedBy = ""

	err = r.persistence.Deviations().Save(ctx, deviation)
	if err != nil {
		return nil, err
	}

	return deviation, nil
}

// GetByID returns one deviation.
func (r *Registry) GetByID(ctx context.Context, id string) (*models.Deviation, error) {
	return r.persistence.Deviations().GetByID(ctx, id)
}

// List returns deviations matching the filter, ordered by severity then
// identification time descending.
func (r *Registry) List(ctx context.Context, filter persistence.DeviationFilter) ([]*models.Deviation, error) {
	return r.persistence.Deviations().List(ctx, filter)
}

// ByAssessment returns all deviations attached to one assessment.
func (r *Registry) ByAssessment(ctx context.Context, assessmentID string) ([]*models.Deviation, error) {
	return r.persistence.Deviations().GetByAssessment(ctx, assessmentID)
}

func (r *Registry) transition(ctx context.Context, op, id string, to models.DeviationStatus, from ...models.DeviationStatus) (*models.Deviation, error) {
	deviation, err := r.persistence.Deviations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false

	for _, status := range from {
		if deviation.Status == status {
			allowed = true

			break
		}
	}

	if !allowed {
		return nil, NewValidationError(op, "INVALID_TRANSITION",
			fmt.Sprintf("cannot move deviation %s from %s to %s", id, deviation.Status, to), ErrInvalidTransition)
	}

	deviation.Status = to

	err = r.persistence.Deviations().Save(ctx, deviation)
	if err != nil {
		return nil, err
	}

	return deviation, nil
}

func (r *Registry) publishOpened(ctx context.Context, deviation *models.Deviation) {
	if r.eventBus == nil {
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

	err := r.eventBus.Publish(ctx, deviation.ExecutionAssessmentID, event)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to publish deviation.opened event",
			"deviation_id", deviation.ID, "error", err)
	}
}

func (r *Registry) publishResolved(ctx context.Context, deviation *models.Deviation) {
	if r.eventBus == nil {
		return
	}

	event := events.DeviationResolved{
		BaseEvent: events.BaseEvent{
			ID:        deviation.ID,
			Type:      events.DeviationResolvedEvent,
			Timestamp: time.Now().UTC(),
		},
		Deviation: deviation,
	}

	err := r.eventBus.Publish(ctx, deviation.ExecutionAssessmentID, event)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to publish deviation.resolved event",
			"deviation_id", deviation.ID, "error", err)
	}
}
