// Package ratelimit implements the fixed-window limiter that guards the lead
// endpoint. Counting is delegated to a Store so replicas can share state.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// Store increments the counter for key inside a fixed window of the given
// length. The first increment opens the window; the returned reset time is
// when it closes. Implementations must be atomic across callers.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	Name() string
}

// Result describes one limiter decision
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Bypassed is set when no store is configured and nothing was counted
	Bypassed bool
}

// Config for a FixedWindow limiter
type Config struct {
	Limit  int
	Window time.Duration
	Prefix string
}

// Validate rejects settings that would make every request fail or pass
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidConfig)
	}
	if c.Window < time.Second {
		return fmt.Errorf("%w: window must be at least one second", ErrInvalidConfig)
	}
	return nil
}

// FixedWindow limits each key to Limit hits per Window
type FixedWindow struct {
	cfg   Config
	store Store
}

// New creates a limiter. A nil store yields a limiter that lets everything
// through and reports Bypassed; its limit and window are not checked.
func New(cfg Config, store Store) (*FixedWindow, error) {
	if store == nil {
		return &FixedWindow{cfg: cfg}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FixedWindow{cfg: cfg, store: store}, nil
}

// Enabled reports whether requests are actually counted
func (l *FixedWindow) Enabled() bool {
	return l.store != nil
}

// StoreName names the backing store, or "disabled"
func (l *FixedWindow) StoreName() string {
	if l.store == nil {
		return "disabled"
	}
	return l.store.Name()
}

// Limit returns the configured maximum per window
func (l *FixedWindow) Limit() int {
	return l.cfg.Limit
}

// Allow counts one hit for key. On store failure the error is returned with
// a zero Result; the caller decides whether to fail open.
func (l *FixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	if l.store == nil {
		return Result{Allowed: true, Limit: l.cfg.Limit, Remaining: l.cfg.Limit, Bypassed: true}, nil
	}

	count, resetAt, err := l.store.Increment(ctx, l.key(key), l.cfg.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store %s: %w", l.store.Name(), err)
	}

	remaining := l.cfg.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.cfg.Limit),
		Limit:     l.cfg.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *FixedWindow) key(id string) string {
	if l.cfg.Prefix == "" {
		return id
	}
	return l.cfg.Prefix + ":" + id
}
