package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/google/uuid"
)

// ChecklistRepository handles checklist catalog and response database
// operations.
type ChecklistRepository struct {
	db *sql.DB
}

func (r *ChecklistRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ChecklistItem, 0)

	for rows.Next() {
		var item models.ChecklistItem

		err := rows.Scan(
			&item.ID,
			&item.Code,
			&item.Requirement,
			&item.Question,
			&item.ComponentType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}

		items = append(items, &item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating checklist items: %w", err)
	}

	return items, nil
}

// Items returns the full checklist item catalog.
func (r *ChecklistRepository) Items(ctx context.Context) ([]*models.ChecklistItem, error) {
	query := `
		SELECT id, code, requirement, question, component_type
		FROM checklist_items
		ORDER BY code
	`

	return r.queryItems(ctx, query)
}

// ItemsByComponent returns catalog items for one COSO component.
func (r *ChecklistRepository) ItemsByComponent(ctx context.Context, ct models.ComponentType) ([]*models.ChecklistItem, error) {
	query := `
		SELECT id, code, requirement, question, component_type
		FROM checklist_items
		WHERE component_type = $1
		ORDER BY code
	`

	return r.queryItems(ctx, query, string(ct))
}

// SaveItem inserts a catalog item. Items are immutable once seeded, so
// conflicts on code are ignored.
func (r *ChecklistRepository) SaveItem(ctx context.Context, item *models.ChecklistItem) error {
	if item.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate checklist item ID: %w", err)
		}

		item.ID = id.String()
	}

	query := `
		INSERT INTO checklist_items (id, code, requirement, question, component_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Code,
		item.Requirement,
		item.Question,
		string(item.ComponentType),
	)
	if err != nil {
		return fmt.Errorf("failed to save checklist item %s: %w", item.Code, err)
	}

	return nil
}

// ResponsesByInstitution returns every stored response for one institution.
func (r *ChecklistRepository) ResponsesByInstitution(ctx context.Context, institutionID string) ([]*models.ChecklistResponse, error) {
	query := `
		SELECT id, institution_id, checklist_item_id, answer,
			COALESCE(comment, ''), COALESCE(evidence_ref, ''),
			COALESCE(answered_by, ''), updated_at
		FROM checklist_responses
		WHERE institution_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*models.ChecklistResponse, 0)

	for rows.Next() {
		var response models.ChecklistResponse

		err := rows.Scan(
			&response.ID,
			&response.InstitutionID,
			&response.ChecklistItemID,
			&response.Answer,
			&response.Comment,
			&response.EvidenceRef,
			&response.AnsweredBy,
			&response.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist response: %w", err)
		}

		responses = append(responses, &response)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating checklist responses: %w", err)
	}

	return responses, nil
}

// SaveResponse upserts the response for (institution, item).
func (r *ChecklistRepository) SaveResponse(ctx context.Context, response *models.ChecklistResponse) error {
	if response.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate response ID: %w", err)
		}

		response.ID = id.String()
	}

	response.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO checklist_responses
			(id, institution_id, checklist_item_id, answer, comment, evidence_ref, answered_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (institution_id, checklist_item_id) DO UPDATE SET
			answer = EXCLUDED.answer,
			comment = EXCLUDED.comment,
			evidence_ref = EXCLUDED.evidence_ref,
			answered_by = EXCLUDED.answered_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		response.ID,
		response.InstitutionID,
		response.ChecklistItemID,
		string(response.Answer),
		response.Comment,
		response.EvidenceRef,
		response.AnsweredBy,
		response.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checklist response for item %s: %w", response.ChecklistItemID, err)
	}

	return nil
}
