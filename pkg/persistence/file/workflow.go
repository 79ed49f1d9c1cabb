package file

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

const workflowsDir = "workflows"

// WorkflowRepository handles workflow file operations. Steps are embedded in
// the workflow document.
type WorkflowRepository struct {
	root string
}

// GetAll returns every workflow, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := documentIDs(r.root, workflowsDir)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByInstitution returns workflows belonging to one institution.
func (r *WorkflowRepository) GetByInstitution(ctx context.Context, institutionID string) ([]*models.Workflow, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.InstitutionID == institutionID {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := readDocument(r.root, workflowsDir, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	if workflow.Steps == nil {
		workflow.Steps = []*models.WorkflowStep{}
	}

	return &workflow, nil
}

// Save writes a workflow document, stamping timestamps.
func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return writeDocument(r.root, workflowsDir, workflow.ID, workflow)
}

// Delete removes a workflow by its ID.
func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(r.root, workflowsDir, id+".json"))

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
