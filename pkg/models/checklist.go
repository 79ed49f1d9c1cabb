package models

import "time"

// ComponentType identifies one of the five COSO internal-control components
// against which checklist items and workflows are grouped.
type ComponentType string

const (
	ComponentControlEnvironment ComponentType = "ambiente_control"
	ComponentRiskAssessment     ComponentType = "evaluacion_riesgos"
	ComponentControlActivities  ComponentType = "actividades_control"
	ComponentInfoCommunication  ComponentType = "informacion_comunicacion"
	ComponentMonitoring         ComponentType = "supervision"
)

// COSOComponents lists the five components in canonical order. Overall
// progress always averages over exactly this set.
var COSOComponents = []ComponentType{
	ComponentControlEnvironment,
	ComponentRiskAssessment,
	ComponentControlActivities,
	ComponentInfoCommunication,
	ComponentMonitoring,
}

// IsValidComponent reports whether ct is one of the five COSO components.
func IsValidComponent(ct ComponentType) bool {
	for _, c := range COSOComponents {
		if c == ct {
			return true
		}
	}

	return false
}

// ChecklistItem is a static reference question. Immutable once seeded.
type ChecklistItem struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"           validate:"required"`
	Requirement   string        `json:"requirement"    validate:"required"`
	Question      string        `json:"question"       validate:"required"`
	ComponentType ComponentType `json:"component_type" validate:"required"`
}

// Answer is a verification answer to a checklist item.
type Answer string

const (
	AnswerYes     Answer = "yes"
	AnswerPartial Answer = "partial"
	AnswerNo      Answer = "no"
)

// Weight maps an answer to its compliance weight. Unanswered items are
// excluded from scoring entirely, so there is no zero-value mapping here.
func (a Answer) Weight() (float64, bool) {
	switch a {
	case AnswerYes:
		return 1.0, true
	case AnswerPartial:
		return 0.5, true
	case AnswerNo:
		return 0.0, true
	default:
		return 0, false
	}
}

// ChecklistResponse records an institution's answer to one checklist item.
// One response per (institution, item); saves use upsert semantics.
type ChecklistResponse struct {
	ID              string    `json:"id"`
	InstitutionID   string    `json:"institution_id"     validate:"required"`
	ChecklistItemID string    `json:"checklist_item_id"  validate:"required"`
	Answer          Answer    `json:"answer"             validate:"required,oneof=yes partial no"`
	Comment         string    `json:"comment,omitempty"`
	EvidenceRef     string    `json:"evidence_ref,omitempty"`
	AnsweredBy      string    `json:"answered_by,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}
