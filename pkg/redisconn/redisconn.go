// Package redisconn opens the shared Redis connection used by the lead
// rate limiter.
package redisconn

import (
	"context"
	"errors"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/retry"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)

const defaultConnectTimeout = 30 * time.Second

// Config describes how to reach Redis
type Config struct {
	URL            string
	ConnectTimeout time.Duration
	Retry          retry.Config
}

// Connect parses cfg.URL and pings the server until it answers or the retry
// budget runs out.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := redis.NewClient(opts)
	err = retry.Do(ctx, cfg.Retry, "redis.connect", func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}

	return client, nil
}

// Healthcheck returns a probe suitable for the health endpoint
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
