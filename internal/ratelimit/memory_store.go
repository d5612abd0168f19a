package ratelimit

import (
	"context"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/internal/cache"
)

// MemoryStore counts in process memory. Each replica keeps its own windows.
type MemoryStore struct {
	counters *cache.CounterCache
}

func NewMemoryStore(counters *cache.CounterCache) *MemoryStore {
	return &MemoryStore{counters: counters}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}
	count, resetAt := s.counters.Increment(key, window)
	return count, resetAt, nil
}
