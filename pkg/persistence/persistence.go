// Package persistence provides the data storage abstraction layer for the
// compliance core.
package persistence

import (
	"context"

	"github.com/cumplia/sgci/pkg/models"
)

// Persistence aggregates the entity repositories behind one storage backend.
type Persistence interface {
	Institutions() InstitutionRepository
	Checklist() ChecklistRepository
	Workflows() WorkflowRepository
	Scores() ScoreRepository
	Assessments() AssessmentRepository
	Deviations() DeviationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// InstitutionRepository stores the institutions under compliance tracking.
type InstitutionRepository interface {
	GetAll(ctx context.Context) ([]*models.Institution, error)
	GetByID(ctx context.Context, id string) (*models.Institution, error)
	Save(ctx context.Context, institution *models.Institution) error
}

// ChecklistRepository stores the static item catalog and per-institution
// responses. SaveResponse upserts on (institution, item).
type ChecklistRepository interface {
	Items(ctx context.Context) ([]*models.ChecklistItem, error)
	ItemsByComponent(ctx context.Context, ct models.ComponentType) ([]*models.ChecklistItem, error)
	SaveItem(ctx context.Context, item *models.ChecklistItem) error
	ResponsesByInstitution(ctx context.Context, institutionID string) ([]*models.ChecklistResponse, error)
	SaveResponse(ctx context.Context, response *models.ChecklistResponse) error
}

// WorkflowRepository stores workflows with their embedded steps.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByInstitution(ctx context.Context, institutionID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ScoreRepository stores compliance score history. Save appends a new
// calculation epoch; prior rows are never overwritten.
type ScoreRepository interface {
	Save(ctx context.Context, score *models.ComplianceScore) error
	Latest(ctx context.Context, institutionID string) ([]*models.ComplianceScore, error)
	History(ctx context.Context, institutionID string, ct models.ComponentType) ([]*models.ComplianceScore, error)
}

// AssessmentRepository stores execution assessments with their embedded
// step-assessment rows.
type AssessmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.ExecutionAssessment, error)
	GetByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionAssessment, error)
	GetByInstitution(ctx context.Context, institutionID string) ([]*models.ExecutionAssessment, error)
	Save(ctx context.Context, assessment *models.ExecutionAssessment) error
}

// DeviationFilter narrows deviation listings. Zero-valued fields match all.
type DeviationFilter struct {
	Severity models.DeviationSeverity
	Status   models.DeviationStatus
	Type     models.DeviationType
}

// DeviationRepository stores deviations discovered by the assessor or
// entered manually.
type DeviationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Deviation, error)
	GetByAssessment(ctx context.Context, assessmentID string) ([]*models.Deviation, error)
	List(ctx context.Context, filter DeviationFilter) ([]*models.Deviation, error)
	// FindByTrigger locates an existing deviation for an automatic trigger
	// key, making assessor-created deviations idempotent across reruns.
	FindByTrigger(ctx context.Context, assessmentID, stepID string, dt models.DeviationType) (*models.Deviation, error)
	Save(ctx context.Context, deviation *models.Deviation) error
}
