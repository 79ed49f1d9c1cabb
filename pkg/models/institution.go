// Package models defines the core domain models for internal-control
// compliance tracking.
package models

import "time"

// InstitutionType classifies the public entity being tracked.
type InstitutionType string

const (
	InstitutionTypeMinistry     InstitutionType = "ministry"
	InstitutionTypeMunicipality InstitutionType = "municipality"
	InstitutionTypeAgency       InstitutionType = "agency"
	InstitutionTypeStateCompany InstitutionType = "state_company"
)

// Institution is the entity whose internal-control compliance is measured.
// Created at onboarding; read-only for this core.
type Institution struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"       validate:"required"`
	Type      InstitutionType `json:"type"`
	Size      string          `json:"size"`
	CreatedAt time.Time       `json:"created_at"`
}
