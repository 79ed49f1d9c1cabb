package services

import (
	"context"

	"github.com/cumplia/sgci/pkg/models"
)

// EngagementSummary is the gamified progress view shown to institution
// users: experience points accrued from compliance work and the level they
// translate to.
type EngagementSummary struct {
	InstitutionID      string `json:"institution_id"`
	Level              int    `json:"level"`
	ExperiencePoints   int    `json:"experience_points"`
	NextLevelPoints    int    `json:"next_level_points"`
	OverallProgress    int    `json:"overall_progress"`
	CompletedWorkflows int    `json:"completed_workflows"`
}

const (
	xpPerProgressPoint     = 10
	xpPerCompletedWorkflow = 250
	xpPerLevel             = 500
	maxLevel               = 10
)

// ComputeEngagement derives the summary from stored state. The numbers are
// a pure function of overall progress and completed workflow count, so
// recomputation always yields the same result for the same state.
func (c *Compliance) ComputeEngagement(ctx context.Context, institutionID string) (*EngagementSummary, error) {
	overallProgress, err := c.ComputeOverallProgress(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	workflows, err := c.persistence.Workflows().GetByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	completed := 0

	for _, workflow := range workflows {
		if workflow.Status == models.WorkflowStatusCompleted {
			completed++
		}
	}

	summary := Engagement(overallProgress, completed)
	summary.InstitutionID = institutionID

	return summary, nil
}

// Engagement maps overall progress and completed workflow count to level
// and experience points.
func Engagement(overallProgress, completedWorkflows int) *EngagementSummary {
	xp := overallProgress*xpPerProgressPoint + completedWorkflows*xpPerCompletedWorkflow

	level := 1 + xp/xpPerLevel
	if level > maxLevel {
		level = maxLevel
	}

	next := level * xpPerLevel
	if level == maxLevel {
		next = xp
	}

	return &EngagementSummary{
		Level:              level,
		ExperiencePoints:   xp,
		NextLevelPoints:    next,
		OverallProgress:    overallProgress,
		CompletedWorkflows: completedWorkflows,
	}
}
