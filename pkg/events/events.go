// Package events defines event types published to the notification
// projection when compliance state changes.
package events

import (
	"time"

	"github.com/cumplia/sgci/pkg/models"
)

type EventType string

// Topic carries all compliance events.
const Topic = "sgci.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	AlertRaisedEvent         EventType = "alert.raised"
	ScoreCalculatedEvent     EventType = "score.calculated"
	DeviationOpenedEvent     EventType = "deviation.opened"
	DeviationResolvedEvent   EventType = "deviation.resolved"
	AssessmentFinalizedEvent EventType = "assessment.finalized"
	WorkflowCompletedEvent   EventType = "workflow.completed"
)

type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	InstitutionID string    `json:"institution_id,omitempty"`
}

// AlertRaised is published for every alert produced by an evaluation run.
type AlertRaised struct {
	BaseEvent

	Alert *models.Alert `json:"alert"`
}

func (e AlertRaised) GetType() EventType {
	return AlertRaisedEvent
}

// ScoreCalculated is published when a new compliance score epoch is stored.
type ScoreCalculated struct {
	BaseEvent

	Score *models.ComplianceScore `json:"score"`
}

func (e ScoreCalculated) GetType() EventType {
	return ScoreCalculatedEvent
}

// DeviationOpened is published when a deviation is recorded, automatically
// or manually.
type DeviationOpened struct {
	BaseEvent

	Deviation *models.Deviation `json:"deviation"`
}

func (e DeviationOpened) GetType() EventType {
	return DeviationOpenedEvent
}

// DeviationResolved is published when a deviation reaches resolved status.
type DeviationResolved struct {
	BaseEvent

	Deviation *models.Deviation `json:"deviation"`
}

func (e DeviationResolved) GetType() EventType {
	return DeviationResolvedEvent
}

// AssessmentFinalized is published when an assessment becomes final and
// immutable.
type AssessmentFinalized struct {
	BaseEvent

	AssessmentID string `json:"assessment_id"`
	WorkflowID   string `json:"workflow_id"`
}

func (e AssessmentFinalized) GetType() EventType {
	return AssessmentFinalizedEvent
}

// WorkflowCompleted is published when a workflow's derived status reaches
// completed.
type WorkflowCompleted struct {
	BaseEvent

	WorkflowID    string               `json:"workflow_id"`
	ComponentType models.ComponentType `json:"component_type"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}
