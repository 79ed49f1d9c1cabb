package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cumplia/sgci/pkg/eventbus"
	"github.com/cumplia/sgci/pkg/events"
	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

// Compliance aggregates checklist responses into per-component scores and
// an overall compliance percentage. Checklist answers are the canonical
// score source; workflow progress never feeds these numbers.
type Compliance struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

// NewCompliance creates a new compliance score calculator. The event bus is
// optional; a nil bus disables score.calculated notifications.
func NewCompliance(p persistence.Persistence, eb eventbus.EventPublisher, logger *slog.Logger) *Compliance {
	return &Compliance{
		persistence: p,
		eventBus:    eb,
		logger:      logger,
	}
}

// componentTally is the per-component view of one response snapshot.
type componentTally struct {
	weightSum float64
	answered  int
	total     int
}

// snapshot reads every checklist item and institution response once, so one
// computation never mixes pre- and post-write answer values.
func (c *Compliance) snapshot(ctx context.Context, institutionID string) (map[models.ComponentType]*componentTally, error) {
	items, err := c.persistence.Checklist().Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist catalog: %w", err)
	}

	responses, err := c.persistence.Checklist().ResponsesByInstitution(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist responses: %w", err)
	}

	itemComponent := make(map[string]models.ComponentType, len(items))
	tallies := make(map[models.ComponentType]*componentTally)

	for _, ct := range models.COSOComponents {
		tallies[ct] = &componentTally{}
	}

	for _, item := range items {
		itemComponent[item.ID] = item.ComponentType

		if tally, ok := tallies[item.ComponentType]; ok {
			tally.total++
		}
	}

	for _, response := range responses {
		ct, ok := itemComponent[response.ChecklistItemID]
		if !ok {
			continue
		}

		weight, answered := response.Answer.Weight()
		if !answered {
			continue
		}

		tally := tallies[ct]
		tally.weightSum += weight
		tally.answered++
	}

	return tallies, nil
}

func (t *componentTally) score() (int, bool) {
	// No answered items is a baseline zero, not a confirmed zero.
	if t.answered == 0 {
		return 0, true
	}

	return int(math.Round(100 * t.weightSum / float64(t.answered))), false
}

// ComputeComponentScore calculates the score for one component from the
// institution's current checklist responses and stores it as a new
// calculation epoch.
func (c *Compliance) ComputeComponentScore(ctx context.Context, institutionID string, ct models.ComponentType) (*models.ComplianceScore, error) {
	if !models.IsValidComponent(ct) {
		return nil, NewValidationError("ComputeComponentScore", "INVALID_COMPONENT",
			fmt.Sprintf("unknown component type %q", ct), ErrInvalidComponent)
	}

	if _, err := c.persistence.Institutions().GetByID(ctx, institutionID); err != nil {
		return nil, err
	}

	tallies, err := c.snapshot(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	score := c.buildScore(institutionID, ct, tallies[ct])

	err = c.persistence.Scores().Save(ctx, score)
	if err != nil {
		return nil, fmt.Errorf("failed to store compliance score: %w", err)
	}

	c.publishScore(ctx, score)

	return score, nil
}

// RecalculateAll computes and stores a fresh score for every COSO component
// from a single response snapshot, returning them in canonical order.
func (c *Compliance) RecalculateAll(ctx context.Context, institutionID string) ([]*models.ComplianceScore, error) {
	if _, err := c.persistence.Institutions().GetByID(ctx, institutionID); err != nil {
		return nil, err
	}

	tallies, err := c.snapshot(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	scores := make([]*models.ComplianceScore, 0, len(models.COSOComponents))

	for _, ct := range models.COSOComponents {
		score := c.buildScore(institutionID, ct, tallies[ct])

		err = c.persistence.Scores().Save(ctx, score)
		if err != nil {
			return nil, fmt.Errorf("failed to store compliance score for %s: %w", ct, err)
		}

		c.publishScore(ctx, score)

		scores = append(scores, score)
	}

	return scores, nil
}

func (c *Compliance) buildScore(institutionID string, ct models.ComponentType, tally *componentTally) *models.ComplianceScore {
	value, baseline := tally.score()

	return &models.ComplianceScore{
		ID:            newID(),
		InstitutionID: institutionID,
		ComponentType: ct,
		Score:         value,
		AnsweredItems: tally.answered,
		TotalItems:    tally.total,
		IsBaseline:    baseline,
		CalculatedAt:  time.Now().UTC(),
	}
}

// ComputeOverallProgress returns the arithmetic mean of the five component
// scores. Every component counts, even with zero answered items, so an
// institution gains nothing by ignoring a component.
func (c *Compliance) ComputeOverallProgress(ctx context.Context, institutionID string) (int, error) {
	if _, err := c.persistence.Institutions().GetByID(ctx, institutionID); err != nil {
		return 0, err
	}

	tallies, err := c.snapshot(ctx, institutionID)
	if err != nil {
		return 0, err
	}

	sum := 0

	for _, ct := range models.COSOComponents {
		value, _ := tallies[ct].score()
		sum += value
	}

	return int(math.Round(float64(sum) / float64(len(models.COSOComponents)))), nil
}

// LatestScores returns the most recent stored score per component.
func (c *Compliance) LatestScores(ctx context.Context, institutionID string) ([]*models.ComplianceScore, error) {
	return c.persistence.Scores().Latest(ctx, institutionID)
}

func (c *Compliance) publishScore(ctx context.Context, score *models.ComplianceScore) {
	if c.eventBus == nil {
		return
	}

	event := events.ScoreCalculated{
		BaseEvent: events.BaseEvent{
			ID:            score.ID,
			Type:          events.ScoreCalculatedEvent,
			Timestamp:     score.CalculatedAt,
			InstitutionID: score.InstitutionID,
		},
		Score: score,
	}

	err := c.eventBus.Publish(ctx, score.InstitutionID, event)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to publish score.calculated event",
			"institution_id", score.InstitutionID, "component", score.ComponentType, "error", err)
	}
}
