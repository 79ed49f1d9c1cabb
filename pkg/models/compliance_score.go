package models

import "time"

// ComplianceScore is one calculation epoch of a component score. Rows are
// superseded by recalculation, never mutated, so score history is preserved.
type ComplianceScore struct {
	ID            string        `json:"id"`
	InstitutionID string        `json:"institution_id"`
	ComponentType ComponentType `json:"component_type"`
	Score         int           `json:"score"          validate:"min=0,max=100"`
	AnsweredItems int           `json:"answered_items"`
	TotalItems    int           `json:"total_items"`
	// IsBaseline distinguishes "no data yet" from a confirmed zero score.
	IsBaseline   bool      `json:"is_baseline"`
	CalculatedAt time.Time `json:"calculated_at"`
}
