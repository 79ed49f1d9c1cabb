package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/cumplia/sgci/pkg/persistence"
)

const assessmentsDir = "execution_assessments"

// AssessmentRepository handles execution assessment file operations. Step
// assessments are embedded in the assessment document.
type AssessmentRepository struct {
	root      string
	workflows *WorkflowRepository
}

// GetByID retrieves an assessment by its ID.
func (r *AssessmentRepository) GetByID(_ context.Context, id string) (*models.ExecutionAssessment, error) {
	var assessment models.ExecutionAssessment

	err := readDocument(r.root, assessmentsDir, id, &assessment)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewAssessmentError("GetByID", id, persistence.ErrAssessmentNotFound)
		}

		return nil, fmt.Errorf("failed to fetch assessment %s: %w", id, err)
	}

	if assessment.Steps == nil {
		assessment.Steps = []*models.StepAssessment{}
	}

	return &assessment, nil
}

func (r *AssessmentRepository) all(ctx context.Context) ([]*models.ExecutionAssessment, error) {
	ids, err := documentIDs(r.root, assessmentsDir)
	if err != nil {
		return nil, err
	}

	assessments := make([]*models.ExecutionAssessment, 0, len(ids))

	for _, id := range ids {
		assessment, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load assessment %s: %w", id, err)
		}

		assessments = append(assessments, assessment)
	}

	sort.Slice(assessments, func(i, j int) bool {
		return assessments[i].AssessmentDate.After(assessments[j].AssessmentDate)
	})

	return assessments, nil
}

// GetByWorkflow returns every assessment for one workflow, newest first.
func (r *AssessmentRepository) GetByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionAssessment, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	assessments := make([]*models.ExecutionAssessment, 0)

	for _, assessment := range all {
		if assessment.WorkflowID == workflowID {
			assessments = append(assessments, assessment)
		}
	}

	return assessments, nil
}

// GetByInstitution returns assessments whose workflow belongs to the
// institution, newest first.
func (r *AssessmentRepository) GetByInstitution(ctx context.Context, institutionID string) ([]*models.ExecutionAssessment, error) {
	workflows, err := r.workflows.GetByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool, len(workflows))
	for _, workflow := range workflows {
		owned[workflow.ID] = true
	}

	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	assessments := make([]*models.ExecutionAssessment, 0)

	for _, assessment := range all {
		if owned[assessment.WorkflowID] {
			assessments = append(assessments, assessment)
		}
	}

	return assessments, nil
}

// Save writes an assessment document, stamping timestamps.
func (r *AssessmentRepository) Save(_ context.Context, assessment *models.ExecutionAssessment) error {
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}

	assessment.UpdatedAt = now

	return writeDocument(r.root, assessmentsDir, assessment.ID, assessment)
}
