package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

const deviationsDir = "deviations"

// DeviationRepository handles deviation file operations.
type DeviationRepository struct {
	root string
}

// GetByID retrieves a deviation by its ID.
func (r *DeviationRepository) GetByID(_ context.Context, id string) (*models.Deviation, error) {
	var deviation models.Deviation

	err := readDocument(r.root, deviationsDir, id, &deviation)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrDeviationNotFound
		}

		return nil, fmt.Errorf("failed to fetch deviation %s: %w", id, err)
	}

	return &deviation, nil
}

func (r *DeviationRepository) all(ctx context.Context) ([]*models.Deviation, error) {
	ids, err := documentIDs(r.root, deviationsDir)
	if err != nil {
		return nil, err
	}

	deviations := make([]*models.Deviation, 0, len(ids))

	for _, id := range ids {
		deviation, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load deviation %s: %w", id, err)
		}

		deviations = append(deviations, deviation)
	}

	return deviations, nil
}

// GetByAssessment returns every deviation recorded against one assessment.
func (r *DeviationRepository) GetByAssessment(ctx context.Context, assessmentID string) ([]*models.Deviation, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	deviations := make([]*models.Deviation, 0)

	for _, deviation := range all {
		if deviation.ExecutionAssessmentID == assessmentID {
			deviations = append(deviations, deviation)
		}
	}

	sortDeviations(deviations)

	return deviations, nil
}

// List returns deviations matching the filter, ordered by severity then
// identifiedAt descending.
func (r *DeviationRepository) List(ctx context.Context, filter persistence.DeviationFilter) ([]*models.Deviation, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	deviations := make([]*models.Deviation, 0)

	for _, deviation := range all {
		if filter.Severity != "" && deviation.Severity != filter.Severity {
			continue
		}

		if filter.Status != "" && deviation.Status != filter.Status {
			continue
		}

		if filter.Type != "" && deviation.Type != filter.Type {
			continue
		}

		deviations = append(deviations, deviation)
	}

	sortDeviations(deviations)

	return deviations, nil
}

// FindByTrigger locates an automatic deviation by its trigger key.
func (r *DeviationRepository) FindByTrigger(ctx context.Context, assessmentID, stepID string, dt models.DeviationType) (*models.Deviation, error) {
	all, err := r.GetByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	for _, deviation := range all {
		if deviation.WorkflowStepID == stepID && deviation.Type == dt {
			return deviation, nil
		}
	}

	return nil, persistence.ErrDeviationNotFound
}

// Save writes a deviation document.
func (r *DeviationRepository) Save(_ context.Context, deviation *models.Deviation) error {
	return writeDocument(r.root, deviationsDir, deviation.ID, deviation)
}

func sortDeviations(deviations []*models.Deviation) {
	sort.Slice(deviations, func(i, j int) bool {
		if deviations[i].Severity.Rank() != deviations[j].Severity.Rank() {
			return deviations[i].Severity.Rank() < deviations[j].Severity.Rank()
		}

		return deviations[i].IdentifiedAt.After(deviations[j].IdentifiedAt)
	})
}
