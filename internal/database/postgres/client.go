package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
)

// querier is the subset of *pgxpool.Pool the client uses
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Client wraps a pgx connection pool with observability
type Client struct {
	db   querier
	pool *pgxpool.Pool
}

// NewClient wraps an already connected pool (see pkg/db.NewPool)
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{db: pool, pool: pool}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}

func recordMetrics(operation, status string, duration float64) {
	metrics.DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.DBOperationTotal.WithLabelValues(operation, status).Inc()
}
