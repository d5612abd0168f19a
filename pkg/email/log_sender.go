package email

import (
	"context"

	"github.com/google/uuid"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"go.uber.org/zap"
)

// LogSender records message metadata in the log instead of sending.
// Development only: config validation refuses it outside APP_ENV=development.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Provider() string { return ProviderLog }

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := "log-" + uuid.NewString()
	logger.Info("Email not sent (log provider)",
		zap.String("message_id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_length", len(msg.Text)),
	)
	return id, nil
}
