package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"golang.org/x/time/rate"
)

const (
	visitorCleanupInterval = time.Minute
	// maxVisitors bounds the bucket table; the least recently seen client
	// is evicted first
	maxVisitors = 10000
)

// RateLimiter is a per-IP token bucket for cheap endpoints (health, metrics).
// The lead endpoint uses the fixed-window LeadRateLimitMiddleware instead.
type RateLimiter struct {
	visitors *lru.Cache[string, *rate.Limiter]
	mu       sync.Mutex
	r        rate.Limit
	b        int
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter allowing r requests per second with
// bursts of b. Call Stop to end the background cleanup.
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return newRateLimiter(r, b, maxVisitors)
}

func newRateLimiter(r rate.Limit, b, size int) *RateLimiter {
	visitors, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	rl := &RateLimiter{
		visitors: visitors,
		r:        r,
		b:        b,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rl.cleanupVisitors(visitorCleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine and waits for it to exit
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.visitors.Get(ip)
	if !exists {
		limiter = rate.NewLimiter(rl.r, rl.b)
		rl.visitors.Add(ip, limiter)
	}
	return limiter
}

// cleanupVisitors drops buckets that have refilled, i.e. idle clients
func (rl *RateLimiter) cleanupVisitors(interval time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, ip := range rl.visitors.Keys() {
		if limiter, ok := rl.visitors.Peek(ip); ok && limiter.Tokens() >= float64(rl.b) {
			rl.visitors.Remove(ip)
		}
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(GetClientIP(c)).Allow() {
			abortWithError(c, http.StatusTooManyRequests, models.CodeTooManyRequests,
				"Rate limit exceeded. Please try again later.", nil)
			return
		}
		c.Next()
	}
}
