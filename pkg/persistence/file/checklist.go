package file

import (
	"context"
	"fmt"
	"time"

	"github.com/cumplia/sgci/pkg/models"
)

const (
	checklistItemsDir     = "checklist_items"
	checklistResponsesDir = "checklist_responses"
)

// ChecklistRepository handles checklist catalog and response file
// operations. Responses are stored under a composite
// <institution>__<item> key so saves naturally upsert.
type ChecklistRepository struct {
	root string
}

// Items returns the full checklist item catalog.
func (r *ChecklistRepository) Items(_ context.Context) ([]*models.ChecklistItem, error) {
	ids, err := documentIDs(r.root, checklistItemsDir)
	if err != nil {
		return nil, err
	}

	items := make([]*models.ChecklistItem, 0, len(ids))

	for _, id := range ids {
		var item models.ChecklistItem

		err := readDocument(r.root, checklistItemsDir, id, &item)
		if err != nil {
			return nil, fmt.Errorf("failed to load checklist item %s: %w", id, err)
		}

		items = append(items, &item)
	}

	return items, nil
}

// ItemsByComponent returns catalog items for one COSO component.
func (r *ChecklistRepository) ItemsByComponent(ctx context.Context, ct models.ComponentType) ([]*models.ChecklistItem, error) {
	all, err := r.Items(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*models.ChecklistItem, 0)

	for _, item := range all {
		if item.ComponentType == ct {
			items = append(items, item)
		}
	}

	return items, nil
}

// SaveItem writes a catalog item document.
func (r *ChecklistRepository) SaveItem(_ context.Context, item *models.ChecklistItem) error {
	return writeDocument(r.root, checklistItemsDir, item.ID, item)
}

// ResponsesByInstitution returns every stored response for one institution.
func (r *ChecklistRepository) ResponsesByInstitution(_ context.Context, institutionID string) ([]*models.ChecklistResponse, error) {
	ids, err := documentIDs(r.root, checklistResponsesDir)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.ChecklistResponse, 0)

	for _, id := range ids {
		var response models.ChecklistResponse

		err := readDocument(r.root, checklistResponsesDir, id, &response)
		if err != nil {
			return nil, fmt.Errorf("failed to load checklist response %s: %w", id, err)
		}

		if response.InstitutionID == institutionID {
			responses = append(responses, &response)
		}
	}

	return responses, nil
}

// SaveResponse upserts the response for (institution, item).
func (r *ChecklistRepository) SaveResponse(_ context.Context, response *models.ChecklistResponse) error {
	response.UpdatedAt = time.Now().UTC()

	key := response.InstitutionID + "__" + response.ChecklistItemID

	return writeDocument(r.root, checklistResponsesDir, key, response)
}
