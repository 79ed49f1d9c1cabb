package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

const institutionsDir = "institutions"

// InstitutionRepository handles institution file operations.
type InstitutionRepository struct {
	root string
}

// GetAll returns every institution, sorted by name.
func (r *InstitutionRepository) GetAll(ctx context.Context) ([]*models.Institution, error) {
	ids, err := documentIDs(r.root, institutionsDir)
	if err != nil {
		return nil, err
	}

	institutions := make([]*models.Institution, 0, len(ids))

	for _, id := range ids {
		institution, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load institution %s: %w", id, err)
		}

		institutions = append(institutions, institution)
	}

	sort.Slice(institutions, func(i, j int) bool {
		return institutions[i].Name < institutions[j].Name
	})

	return institutions, nil
}

// GetByID retrieves an institution by its ID.
func (r *InstitutionRepository) GetByID(_ context.Context, id string) (*models.Institution, error) {
	var institution models.Institution

	err := readDocument(r.root, institutionsDir, id, &institution)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrInstitutionNotFound
		}

		return nil, fmt.Errorf("failed to fetch institution %s: %w", id, err)
	}

	return &institution, nil
}

// Save writes an institution document.
func (r *InstitutionRepository) Save(_ context.Context, institution *models.Institution) error {
	return writeDocument(r.root, institutionsDir, institution.ID, institution)
}
