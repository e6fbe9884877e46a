// Package cache provides Redis-based caching for quick state reads.
// Run snapshots cached here are never the source of truth; the ledger is.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/infra/storage"
)

// RedisClient is an interface for Redis operations.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RunCache provides fast access to run state snapshots.
type RunCache struct {
	client     RedisClient
	expiration time.Duration
}

// NewRunCache creates a cache wrapper around a Redis client.
func NewRunCache(client RedisClient, expiration time.Duration) *RunCache {
	if expiration <= 0 {
		expiration = 30 * time.Second
	}
	return &RunCache{
		client:     client,
		expiration: expiration,
	}
}

func runKey(runID string) string {
	return "run:snapshot:" + runID
}

// SetSnapshot stores a run snapshot with the configured expiration.
func (c *RunCache) SetSnapshot(ctx context.Context, snap storage.RunSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal run snapshot: %w", err)
	}
	return c.client.Set(ctx, runKey(snap.RunID), string(data), c.expiration)
}

// GetSnapshot retrieves a cached run snapshot. A miss returns (nil, nil)
// so the caller can fall back to the repository.
func (c *RunCache) GetSnapshot(ctx context.Context, runID string) (*storage.RunSnapshot, error) {
	data, err := c.client.Get(ctx, runKey(runID))
	if err != nil || data == "" {
		return nil, nil
	}

	var snap storage.RunSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// Invalidate removes a run's cached snapshot.
func (c *RunCache) Invalidate(ctx context.Context, runID string) error {
	return c.client.Del(ctx, runKey(runID))
}
