package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/sanitize"
	"go.uber.org/zap"
)

const insertLeadSQL = `
	INSERT INTO leads (id, name, email, phone, message, client_ip, email_message_id, created_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`

// InsertLead stores a dispatched lead
func (c *Client) InsertLead(ctx context.Context, lead *models.Lead) error {
	start := time.Now()
	operation := "insertLead"

	_, err := c.db.Exec(ctx, insertLeadSQL,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Message,
		lead.ClientIP,
		lead.EmailMessageID,
		lead.CreatedAt,
	)
	duration := metrics.MeasureDuration(start)
	if err != nil {
		recordMetrics(operation, "error", duration)
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	recordMetrics(operation, "success", duration)
	logger.Debug("Lead archived",
		zap.String("lead_id", lead.ID.String()),
		zap.String("email", sanitize.MaskEmail(lead.Email)),
		zap.Float64("duration", duration))

	return nil
}
