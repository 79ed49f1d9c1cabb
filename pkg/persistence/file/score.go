package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/cumplia/sgci/pkg/models"
)

const scoresDir = "compliance_scores"

// ScoreRepository handles compliance score file operations. Every
// calculation epoch is a new document; history is never overwritten.
type ScoreRepository struct {
	root string
}

// Save appends a new score document.
func (r *ScoreRepository) Save(_ context.Context, score *models.ComplianceScore) error {
	return writeDocument(r.root, scoresDir, score.ID, score)
}

func (r *ScoreRepository) all(institutionID string) ([]*models.ComplianceScore, error) {
	ids, err := documentIDs(r.root, scoresDir)
	if err != nil {
		return nil, err
	}

	scores := make([]*models.ComplianceScore, 0)

	for _, id := range ids {
		var score models.ComplianceScore

		err := readDocument(r.root, scoresDir, id, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to load compliance score %s: %w", id, err)
		}

		if score.InstitutionID == institutionID {
			scores = append(scores, &score)
		}
	}

	return scores, nil
}

// Latest returns the most recent score per component for one institution.
func (r *ScoreRepository) Latest(_ context.Context, institutionID string) ([]*models.ComplianceScore, error) {
	scores, err := r.all(institutionID)
	if err != nil {
		return nil, err
	}

	latest := make(map[models.ComponentType]*models.ComplianceScore)

	for _, score := range scores {
		current, ok := latest[score.ComponentType]
		if !ok || score.CalculatedAt.After(current.CalculatedAt) {
			latest[score.ComponentType] = score
		}
	}

	result := make([]*models.ComplianceScore, 0, len(latest))
	for _, ct := range models.COSOComponents {
		if score, ok := latest[ct]; ok {
			result = append(result, score)
		}
	}

	return result, nil
}

// History returns every calculation epoch for one component, newest first.
func (r *ScoreRepository) History(_ context.Context, institutionID string, ct models.ComponentType) ([]*models.ComplianceScore, error) {
	scores, err := r.all(institutionID)
	if err != nil {
		return nil, err
	}

	history := make([]*models.ComplianceScore, 0)

	for _, score := range scores {
		if score.ComponentType == ct {
			history = append(history, score)
		}
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CalculatedAt.After(history[j].CalculatedAt)
	})

	return history, nil
}
