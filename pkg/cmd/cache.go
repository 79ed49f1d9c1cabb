package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cumplia/sgci/pkg/cache"
)

// NewScoreCache returns the redis-backed cache when a URL is configured and
// the no-op cache otherwise.
func NewScoreCache(ctx context.Context, logger *slog.Logger, redisURL string) cache.ScoreCache {
	if redisURL == "" {
		return cache.NewNoOp()
	}

	redisCache, err := cache.NewRedis(ctx, redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect score cache: %w", err))
	}

	logger.InfoContext(ctx, "Score cache connected", "redis_url", redisURL)

	return redisCache
}
