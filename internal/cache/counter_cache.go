package cache

import (
	"sync"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
)

const counterCleanupPeriod = time.Minute

type window struct {
	count   int64
	resetAt time.Time
}

// CounterCache keeps fixed-window counters in process memory. Expired windows
// are dropped by go-cache's janitor. Counts are per process, so running more
// than one replica multiplies the effective limit.
type CounterCache struct {
	name  string
	cache *gocache.Cache
	mu    sync.Mutex
	now   func() time.Time
}

// NewCounterCache creates an empty counter cache
func NewCounterCache(name string) *CounterCache {
	return &CounterCache{
		name:  name,
		cache: gocache.New(gocache.NoExpiration, counterCleanupPeriod),
		now:   time.Now,
	}
}

// Increment adds one to key's counter and returns the new count along with
// the time the current window closes. The first hit after a window closes
// starts a new one.
func (c *CounterCache) Increment(key string, ttl time.Duration) (int64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if v, ok := c.cache.Get(key); ok {
		w := v.(*window)
		if now.Before(w.resetAt) {
			w.count++
			return w.count, w.resetAt
		}
	}

	w := &window{count: 1, resetAt: now.Add(ttl)}
	c.cache.Set(key, w, ttl)
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(c.cache.ItemCount()))

	return w.count, w.resetAt
}
