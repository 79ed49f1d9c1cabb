package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/google/uuid"
)

// ScoreRepository handles compliance score database operations. Save only
// ever inserts: each calculation is a new epoch and history is preserved.
type ScoreRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save inserts a new score row.
func (r *ScoreRepository) Save(ctx context.Context, score *models.ComplianceScore) error {
	if score.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate score ID: %w", err)
		}

		score.ID = id.String()
	}

	query := `
		INSERT INTO compliance_scores
			(id, institution_id, component_type, score, answered_items, total_items, is_baseline, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		score.ID,
		score.InstitutionID,
		string(score.ComponentType),
		score.Score,
		score.AnsweredItems,
		score.TotalItems,
		score.IsBaseline,
		score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save compliance score: %w", err)
	}

	return nil
}

func (r *ScoreRepository) queryScores(ctx context.Context, query string, args ...any) ([]*models.ComplianceScore, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance scores: %w", err)
	}
	defer rows.Close()

	scores := make([]*models.ComplianceScore, 0)

	for rows.Next() {
		var score models.ComplianceScore

		err := rows.Scan(
			&score.ID,
			&score.InstitutionID,
			&score.ComponentType,
			&score.Score,
			&score.AnsweredItems,
			&score.TotalItems,
			&score.IsBaseline,
			&score.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance score: %w", err)
		}

		scores = append(scores, &score)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating compliance scores: %w", err)
	}

	return scores, nil
}

// Latest returns the most recent score per component for one institution.
func (r *ScoreRepository) Latest(ctx context.Context, institutionID string) ([]*models.ComplianceScore, error) {
	query := `
		SELECT DISTINCT ON (component_type)
			id, institution_id, component_type, score, answered_items, total_items, is_baseline, calculated_at
		FROM compliance_scores
		WHERE institution_id = $1
		ORDER BY component_type, calculated_at DESC
	`

	return r.queryScores(ctx, query, institutionID)
}

// History returns every calculation epoch for one component, newest first.
func (r *ScoreRepository) History(ctx context.Context, institutionID string, ct models.ComponentType) ([]*models.ComplianceScore, error) {
	query := `
		SELECT id, institution_id, component_type, score, answered_items, total_items, is_baseline, calculated_at
		FROM compliance_scores
		WHERE institution_id = $1 AND component_type = $2
		ORDER BY calculated_at DESC
	`

	return r.queryScores(ctx, query, institutionID, string(ct))
}
