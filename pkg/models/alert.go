package models

import "time"

// AlertType identifies which health rule produced the alert.
type AlertType string

const (
	AlertOverdue             AlertType = "overdue"
	AlertDeadlineApproaching AlertType = "deadline_approaching"
	AlertReviewRequired      AlertType = "review_required"
	AlertStaleActivity       AlertType = "stale_activity"
	AlertTooManyPending      AlertType = "too_many_pending"
	AlertSetupNudge          AlertType = "setup_nudge"
	AlertNearCompletion      AlertType = "near_completion"
)

// AlertPriority follows the application's Spanish priority labels.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "alta"
	PriorityMedium AlertPriority = "media"
	PriorityLow    AlertPriority = "baja"
)

// Alert is a transient, regenerable signal about workflow health. Each
// evaluation run supersedes the previous set; alerts are never mutated or
// accumulated.
type Alert struct {
	ID            string        `json:"id"`
	InstitutionID string        `json:"institution_id"`
	WorkflowID    string        `json:"workflow_id,omitempty"`
	Type          AlertType     `json:"type"`
	Priority      AlertPriority `json:"priority"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Key identifies an alert's content independently of its generated ID.
// Two evaluation runs over unchanged state produce identical key sets.
func (a *Alert) Key() string {
	return string(a.Type) + "/" + a.WorkflowID + "/" + string(a.Priority)
}
