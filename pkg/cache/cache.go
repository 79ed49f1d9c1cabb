// Package cache provides a read-through cache for computed compliance
// scores, so dashboard reads do not recompute on every request.
package cache

import (
	"context"

	"github.com/cumplia/sgci/pkg/models"
)

// ScoreCache caches the latest score set per institution. Writers invalidate
// on every recalculation; a miss falls through to persistence.
type ScoreCache interface {
	GetLatest(ctx context.Context, institutionID string) ([]*models.ComplianceScore, bool, error)
	SetLatest(ctx context.Context, institutionID string, scores []*models.ComplianceScore) error
	Invalidate(ctx context.Context, institutionID string) error
	Close() error
}

// NoOp is the cache used when no redis URL is configured. Every read is a
// miss.
type NoOp struct{}

func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) GetLatest(_ context.Context, _ string) ([]*models.ComplianceScore, bool, error) {
	return nil, false, nil
}

func (n *NoOp) SetLatest(_ context.Context, _ string, _ []*models.ComplianceScore) error {
	return nil
}

func (n *NoOp) Invalidate(_ context.Context, _ string) error {
	return nil
}

func (n *NoOp) Close() error {
	return nil
}
