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

// AssessmentRepository handles execution assessment database operations.
// Step-assessment rows are append-only: saves insert missing rows and never
// delete existing ones.
type AssessmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const assessmentColumns = `
	id
  , workflow_id
  , assessor_id
  , assessment_date
  , execution_status
  , status
  , overall_fidelity_score
  , design_compliance_score
  , timeline_compliance_score
  , quality_score
  , COALESCE(overall_findings, '')
  , COALESCE(recommendations, '')
  , created_at
  , updated_at
`

func scanAssessment(row interface{ Scan(...any) error }) (*models.ExecutionAssessment, error) {
	var assessment models.ExecutionAssessment

	err := row.Scan(
		&assessment.ID,
		&assessment.WorkflowID,
		&assessment.AssessorID,
		&assessment.AssessmentDate,
		&assessment.ExecutionStatus,
		&assessment.Status,
		&assessment.OverallFidelityScore,
		&assessment.DesignComplianceScore,
		&assessment.TimelineComplianceScore,
		&assessment.QualityScore,
		&assessment.OverallFindings,
		&assessment.Recommendations,
		&assessment.CreatedAt,
		&assessment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	assessment.Steps = []*models.StepAssessment{}

	return &assessment, nil
}

// GetByID returns an assessment with its step rows.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*models.ExecutionAssessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM execution_assessments WHERE id = $1`

	assessment, err := scanAssessment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewAssessmentError("GetByID", id, persistence.ErrAssessmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan assessment %s: %w", id, err)
	}

	err = r.loadSteps(ctx, assessment)
	if err != nil {
		return nil, err
	}

	return assessment, nil
}

// GetByWorkflow returns every assessment for one workflow, newest first.
func (r *AssessmentRepository) GetByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionAssessment, error) {
	query := `SELECT ` + assessmentColumns + `
		FROM execution_assessments
		WHERE workflow_id = $1
		ORDER BY assessment_date DESC`

	return r.queryAssessments(ctx, query, workflowID)
}

// GetByInstitution returns assessments whose workflow belongs to the
// institution, newest first.
func (r *AssessmentRepository) GetByInstitution(ctx context.Context, institutionID string) ([]*models.ExecutionAssessment, error) {
	query := `SELECT ` + assessmentColumns + `
		FROM execution_assessments
		WHERE workflow_id IN (SELECT id FROM workflows WHERE institution_id = $1)
		ORDER BY assessment_date DESC`

	return r.queryAssessments(ctx, query, institutionID)
}

func (r *AssessmentRepository) queryAssessments(ctx context.Context, query string, args ...any) ([]*models.ExecutionAssessment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	assessments := make([]*models.ExecutionAssessment, 0)

	for rows.Next() {
		assessment, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}

		assessments = append(assessments, assessment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating assessments: %w", err)
	}

	for _, assessment := range assessments {
		err = r.loadSteps(ctx, assessment)
		if err != nil {
			return nil, err
		}
	}

	return assessments, nil
}

func (r *AssessmentRepository) loadSteps(ctx context.Context, assessment *models.ExecutionAssessment) error {
	query := `
		SELECT
			id
		  , execution_assessment_id
		  , workflow_step_id
		  , planned_start_date
		  , actual_start_date
		  , planned_end_date
		  , actual_end_date
		  , planned_duration
		  , actual_duration
		  , design_adherence
		  , execution_quality
		  , output_compliance
		  , COALESCE(observations, '')
		  , created_at
		FROM step_assessments
		WHERE execution_assessment_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, assessment.ID)
	if err != nil {
		return fmt.Errorf("failed to query step assessments for %s: %w", assessment.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step models.StepAssessment

		err := rows.Scan(
			&step.ID,
			&step.ExecutionAssessmentID,
			&step.WorkflowStepID,
			&step.PlannedStartDate,
			&step.ActualStartDate,
			&step.PlannedEndDate,
			&step.ActualEndDate,
			&step.PlannedDuration,
			&step.ActualDuration,
			&step.DesignAdherence,
			&step.ExecutionQuality,
			&step.OutputCompliance,
			&step.Observations,
			&step.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan step assessment: %w", err)
		}

		assessment.Steps = append(assessment.Steps, &step)
	}

	return rows.Err()
}

// Save upserts the assessment row and inserts any new step rows. Existing
// step rows are left untouched (append-only evaluation history).
func (r *AssessmentRepository) Save(ctx context.Context, assessment *models.ExecutionAssessment) error {
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}

	assessment.UpdatedAt = now

	if assessment.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate assessment ID: %w", err)
		}

		assessment.ID = id.String()
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	query := `
		INSERT INTO execution_assessments
			(id, workflow_id, assessor_id, assessment_date, execution_status, status,
			 overall_fidelity_score, design_compliance_score, timeline_compliance_score, quality_score,
			 overall_findings, recommendations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			execution_status = EXCLUDED.execution_status,
			status = EXCLUDED.status,
			overall_fidelity_score = EXCLUDED.overall_fidelity_score,
			design_compliance_score = EXCLUDED.design_compliance_score,
			timeline_compliance_score = EXCLUDED.timeline_compliance_score,
			quality_score = EXCLUDED.quality_score,
			overall_findings = EXCLUDED.overall_findings,
			recommendations = EXCLUDED.recommendations,
			updated_at = EXCLUDED.updated_at
	`

	_, err = transaction.ExecContext(ctx, query,
		assessment.ID,
		assessment.WorkflowID,
		assessment.AssessorID,
		assessment.AssessmentDate,
		string(assessment.ExecutionStatus),
		string(assessment.Status),
		assessment.OverallFidelityScore,
		assessment.DesignComplianceScore,
		assessment.TimelineComplianceScore,
		assessment.QualityScore,
		assessment.OverallFindings,
		assessment.Recommendations,
		assessment.CreatedAt,
		assessment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment %s: %w", assessment.ID, err)
	}

	for _, step := range assessment.Steps {
		if step.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate step assessment ID: %w", err)
			}

			step.ID = id.String()
		}

		step.ExecutionAssessmentID = assessment.ID
		if step.CreatedAt.IsZero() {
			step.CreatedAt = now
		}

		_, err = transaction.ExecContext(ctx, `
			INSERT INTO step_assessments
				(id, execution_assessment_id, workflow_step_id,
				 planned_start_date, actual_start_date, planned_end_date, actual_end_date,
				 planned_duration, actual_duration,
				 design_adherence, execution_quality, output_compliance, observations, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING
		`,
			step.ID,
			step.ExecutionAssessmentID,
			step.WorkflowStepID,
			step.PlannedStartDate,
			step.ActualStartDate,
			step.PlannedEndDate,
			step.ActualEndDate,
			step.PlannedDuration,
			step.ActualDuration,
			string(step.DesignAdherence),
			string(step.ExecutionQuality),
			string(step.OutputCompliance),
			step.Observations,
			step.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save step assessment %s: %w", step.ID, err)
		}
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit assessment %s: %w", assessment.ID, err)
	}

	return nil
}
