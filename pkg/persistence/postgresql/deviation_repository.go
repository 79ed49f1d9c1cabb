package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/google/uuid"
)

// DeviationRepository handles deviation database operations.
type DeviationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const deviationColumns = `
	id
  , execution_assessment_id
  , COALESCE(workflow_step_id::text, '')
  , type
  , severity
  , description
  , status
  , COALESCE(identified_by, '')
  , identified_at
  , COALESCE(resolution, '')
  , resolved_at
  , COALESCE(resolved_by, '')
`

// severityOrder sorts critical first in SQL listings.
const severityOrder = `
	CASE severity
		WHEN 'critical' THEN 0
		WHEN 'major' THEN 1
		WHEN 'minor' THEN 2
		ELSE 3
	END
`

func scanDeviation(row interface{ Scan(...any) error }) (*models.Deviation, error) {
	var deviation models.Deviation

	err := row.Scan(
		&deviation.ID,
		&deviation.ExecutionAssessmentID,
		&deviation.WorkflowStepID,
		&deviation.Type,
		&deviation.Severity,
		&deviation.Description,
		&deviation.Status,
		&deviation.IdentifiedBy,
		&deviation.IdentifiedAt,
		&deviation.Resolution,
		&deviation.ResolvedAt,
		&deviation.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}

	return &deviation, nil
}

// GetByID returns a deviation by its ID.
func (r *DeviationRepository) GetByID(ctx context.Context, id string) (*models.Deviation, error) {
	query := `SELECT ` + deviationColumns + ` FROM deviations WHERE id = $1`

	deviation, err := scanDeviation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrDeviationNotFound
		}

		return nil, fmt.Errorf("failed to scan deviation %s: %w", id, err)
	}

	return deviation, nil
}

// GetByAssessment returns every deviation recorded against one assessment.
func (r *DeviationRepository) GetByAssessment(ctx context.Context, assessmentID string) ([]*models.Deviation, error) {
	query := `SELECT ` + deviationColumns + `
		FROM deviations
		WHERE execution_assessment_id = $1
		ORDER BY ` + severityOrder + `, identified_at DESC`

	return r.queryDeviations(ctx, query, assessmentID)
}

// List returns deviations matching the filter, ordered by severity then
// identifiedAt descending.
func (r *DeviationRepository) List(ctx context.Context, filter persistence.DeviationFilter) ([]*models.Deviation, error) {
	query := `SELECT ` + deviationColumns + ` FROM deviations WHERE 1=1`
	args := make([]any, 0, 3)

	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		query += " AND severity = $" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += " AND status = $" + strconv.Itoa(len(args))
	}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += " AND type = $" + strconv.Itoa(len(args))
	}

	query += ` ORDER BY ` + severityOrder + `, identified_at DESC`

	return r.queryDeviations(ctx, query, args...)
}

// FindByTrigger locates an automatic deviation by its trigger key.
func (r *DeviationRepository) FindByTrigger(ctx context.Context, assessmentID, stepID string, dt models.DeviationType) (*models.Deviation, error) {
	query := `SELECT ` + deviationColumns + `
		FROM deviations
		WHERE execution_assessment_id = $1 AND workflow_step_id = $2 AND type = $3`

	deviation, err := scanDeviation(r.db.QueryRowContext(ctx, query, assessmentID, stepID, string(dt)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrDeviationNotFound
		}

		return nil, fmt.Errorf("failed to scan deviation trigger lookup: %w", err)
	}

	return deviation, nil
}

func (r *DeviationRepository) queryDeviations(ctx context.Context, query string, args ...any) ([]*models.Deviation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deviations: %w", err)
	}
	defer rows.Close()

	deviations := make([]*models.Deviation, 0)

	for rows.Next() {
		deviation, err := scanDeviation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deviation: %w", err)
		}

		deviations = append(deviations, deviation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating deviations: %w", err)
	}

	return deviations, nil
}

// Save upserts a deviation row.
func (r *DeviationRepository) Save(ctx context.Context, deviation *models.Deviation) error {
	if deviation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate deviation ID: %w", err)
		}

		deviation.ID = id.String()
	}

	var stepID any
	if deviation.WorkflowStepID != "" {
		stepID = deviation.WorkflowStepID
	}

	query := `
		INSERT INTO deviations
			(id, execution_assessment_id, workflow_step_id, type, severity, description,
			 status, identified_by, identified_at, resolution, resolved_at, resolved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			resolution = EXCLUDED.resolution,
			resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by
	`

	_, err := r.db.ExecContext(ctx, query,
		deviation.ID,
		deviation.ExecutionAssessmentID,
		stepID,
		string(deviation.Type),
		string(deviation.Severity),
		deviation.Description,
		string(deviation.Status),
		deviation.IdentifiedBy,
		deviation.IdentifiedAt,
		deviation.Resolution,
		deviation.ResolvedAt,
		deviation.ResolvedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save deviation %s: %w", deviation.ID, err)
	}

	return nil
}
