package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cumplia/sgci/pkg/models"
	"github.com/redis/go-redis/v9"
)

const scoreTTL = 5 * time.Minute

// Redis implements ScoreCache on a redis instance.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the redis instance at redisURL
// (redis://[user:pass@]host:port/db).
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

func scoreKey(institutionID string) string {
	return "sgci:scores:" + institutionID
}

func (r *Redis) GetLatest(ctx context.Context, institutionID string) ([]*models.ComplianceScore, bool, error) {
	body, err := r.client.Get(ctx, scoreKey(institutionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached scores: %w", err)
	}

	var scores []*models.ComplianceScore

	err = json.Unmarshal(body, &scores)
	if err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		return nil, false, nil
	}

	return scores, true, nil
}

func (r *Redis) SetLatest(ctx context.Context, institutionID string, scores []*models.ComplianceScore) error {
	body, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	return r.client.Set(ctx, scoreKey(institutionID), body, scoreTTL).Err()
}

func (r *Redis) Invalidate(ctx context.Context, institutionID string) error {
	return r.client.Del(ctx, scoreKey(institutionID)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
