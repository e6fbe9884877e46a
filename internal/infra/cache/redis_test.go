package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Norsninja/OilLeak-sub000/internal/infra/storage"
)

// fakeRedis is an in-memory RedisClient for tests.
type fakeRedis struct {
	store map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	return f.store[key], nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.store[key] = value.(string)
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.store, k)
	}
	return nil
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewRunCache(newFakeRedis(), time.Minute)

	snap := storage.RunSnapshot{
		RunID:         "RUN-A",
		Phase:         "Running",
		EmissionRate:  12.5,
		ActiveSources: 2,
		BurstActive:   true,
	}
	if err := c.SetSnapshot(ctx, snap); err != nil {
		t.Fatalf("SetSnapshot failed: %v", err)
	}

	got, err := c.GetSnapshot(ctx, "RUN-A")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got == nil {
		t.Fatalf("Expected a cached snapshot")
	}
	if got.EmissionRate != 12.5 || got.ActiveSources != 2 || !got.BurstActive {
		t.Errorf("Cached snapshot mismatch: %+v", got)
	}
}

func TestCacheMissFallsThrough(t *testing.T) {
	c := NewRunCache(newFakeRedis(), time.Minute)

	got, err := c.GetSnapshot(context.Background(), "RUN-MISSING")
	if err != nil {
		t.Fatalf("Expected a miss without error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil snapshot on miss, got %+v", got)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewRunCache(newFakeRedis(), time.Minute)

	c.SetSnapshot(ctx, storage.RunSnapshot{RunID: "RUN-A"})
	if err := c.Invalidate(ctx, "RUN-A"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	got, _ := c.GetSnapshot(ctx, "RUN-A")
	if got != nil {
		t.Errorf("Expected snapshot gone after invalidation, got %+v", got)
	}
}
