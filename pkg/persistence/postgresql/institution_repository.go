package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/google/uuid"
)

// InstitutionRepository handles institution database operations.
type InstitutionRepository struct {
	db *sql.DB
}

// GetAll returns every institution, sorted by name.
func (r *InstitutionRepository) GetAll(ctx context.Context) ([]*models.Institution, error) {
	query := `
		SELECT id, name, type, size, created_at
		FROM institutions
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query institutions: %w", err)
	}
	defer rows.Close()

	institutions := make([]*models.Institution, 0)

	for rows.Next() {
		var institution models.Institution

		err := rows.Scan(
			&institution.ID,
			&institution.Name,
			&institution.Type,
			&institution.Size,
			&institution.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan institution: %w", err)
		}

		institutions = append(institutions, &institution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating institutions: %w", err)
	}

	return institutions, nil
}

// GetByID returns an institution by its ID.
func (r *InstitutionRepository) GetByID(ctx context.Context, id string) (*models.Institution, error) {
	query := `
		SELECT id, name, type, size, created_at
		FROM institutions
		WHERE id = $1
	`

	var institution models.Institution

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&institution.ID,
		&institution.Name,
		&institution.Type,
		&institution.Size,
		&institution.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrInstitutionNotFound
		}

		return nil, fmt.Errorf("failed to scan institution %s: %w", id, err)
	}

	return &institution, nil
}

// Save upserts an institution row.
func (r *InstitutionRepository) Save(ctx context.Context, institution *models.Institution) error {
	if institution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate institution ID: %w", err)
		}

		institution.ID = id.String()
	}

	if institution.CreatedAt.IsZero() {
		institution.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO institutions (id, name, type, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			size = EXCLUDED.size
	`

	_, err := r.db.ExecContext(ctx, query,
		institution.ID,
		institution.Name,
		institution.Type,
		institution.Size,
		institution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save institution %s: %w", institution.ID, err)
	}

	return nil
}
