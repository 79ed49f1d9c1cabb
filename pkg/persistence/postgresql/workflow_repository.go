package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow and workflow-step database operations.
// Steps are persisted alongside the workflow in one transaction so progress
// and step state never diverge.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , institution_id
  , component_type
  , name
  , COALESCE(description, '')
  , status
  , progress
  , COALESCE(assigned_to_id, '')
  , due_date
  , completed_at
  , created_at
  , updated_at
`

func scanWorkflow(row interface{ Scan(...any) error }) (*models.Workflow, error) {
	var workflow models.Workflow

	err := row.Scan(
		&workflow.ID,
		&workflow.InstitutionID,
		&workflow.ComponentType,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.Progress,
		&workflow.AssignedToID,
		&workflow.DueDate,
		&workflow.CompletedAt,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Steps = []*models.WorkflowStep{}

	return &workflow, nil
}

// GetAll returns every workflow with its steps, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	return r.queryWorkflows(ctx, query)
}

// GetByInstitution returns workflows belonging to one institution.
func (r *WorkflowRepository) GetByInstitution(ctx context.Context, institutionID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE institution_id = $1 ORDER BY created_at DESC`

	return r.queryWorkflows(ctx, query, institutionID)
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err = r.loadSteps(ctx, workflow)
		if err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// GetByID returns a workflow with its steps.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow %s: %w", id, err)
	}

	err = r.loadSteps(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflow *models.Workflow) error {
	query := `
		SELECT
			id
		  , workflow_id
		  , sequence_number
		  , name
		  , COALESCE(responsible_role, '')
		  , planned_start_date
		  , planned_end_date
		  , estimated_duration
		  , status
		  , status_changed_at
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY sequence_number
	`

	rows, err := r.db.QueryContext(ctx, query, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query steps for workflow %s: %w", workflow.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step models.WorkflowStep

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.SequenceNumber,
			&step.Name,
			&step.ResponsibleRole,
			&step.PlannedStartDate,
			&step.PlannedEndDate,
			&step.EstimatedDuration,
			&step.Status,
			&step.StatusChangedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan workflow step: %w", err)
		}

		workflow.Steps = append(workflow.Steps, &step)
	}

	return rows.Err()
}

// Save writes the workflow and replaces its step rows in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	query := `
		INSERT INTO workflows
			(id, institution_id, component_type, name, description, status, progress,
			 assigned_to_id, due_date, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			assigned_to_id = EXCLUDED.assigned_to_id,
			due_date = EXCLUDED.due_date,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = transaction.ExecContext(ctx, query,
		workflow.ID,
		workflow.InstitutionID,
		string(workflow.ComponentType),
		workflow.Name,
		workflow.Description,
		string(workflow.Status),
		workflow.Progress,
		workflow.AssignedToID,
		workflow.DueDate,
		workflow.CompletedAt,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	_, err = transaction.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear steps for workflow %s: %w", workflow.ID, err)
	}

	for _, step := range workflow.Steps {
		if step.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate step ID: %w", err)
			}

			step.ID = id.String()
		}

		step.WorkflowID = workflow.ID
		if step.StatusChangedAt.IsZero() {
			step.StatusChangedAt = now
		}

		_, err = transaction.ExecContext(ctx, `
			INSERT INTO workflow_steps
				(workflow_id, id, sequence_number, name, responsible_role,
				 planned_start_date, planned_end_date, estimated_duration, status, status_changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			step.WorkflowID,
			step.ID,
			step.SequenceNumber,
			step.Name,
			step.ResponsibleRole,
			step.PlannedStartDate,
			step.PlannedEndDate,
			step.EstimatedDuration,
			string(step.Status),
			step.StatusChangedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save step %s: %w", step.ID, err)
		}
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow and, by cascade, its steps.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for workflow %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}
