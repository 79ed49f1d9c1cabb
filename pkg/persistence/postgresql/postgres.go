// Package postgresql provides the PostgreSQL persistence implementation for
// the compliance core.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	institutionRepo *InstitutionRepository
	checklistRepo   *ChecklistRepository
	workflowRepo    *WorkflowRepository
	scoreRepo       *ScoreRepository
	assessmentRepo  *AssessmentRepository
	deviationRepo   *DeviationRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:              database,
		logger:          logger,
		institutionRepo: &InstitutionRepository{db: database},
		checklistRepo:   &ChecklistRepository{db: database},
		workflowRepo:    &WorkflowRepository{db: database, logger: logger},
		scoreRepo:       &ScoreRepository{db: database, logger: logger},
		assessmentRepo:  &AssessmentRepository{db: database, logger: logger},
		deviationRepo:   &DeviationRepository{db: database, logger: logger},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Institutions() persistence.InstitutionRepository {
	return p.institutionRepo
}

func (p *Persistence) Checklist() persistence.ChecklistRepository {
	return p.checklistRepo
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Scores() persistence.ScoreRepository {
	return p.scoreRepo
}

func (p *Persistence) Assessments() persistence.AssessmentRepository {
	return p.assessmentRepo
}

func (p *Persistence) Deviations() persistence.DeviationRepository {
	return p.deviationRepo
}
