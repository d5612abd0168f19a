package email

import (
	"context"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type instrumentedSender struct {
	next    Sender
	timeout time.Duration
}

// Instrument wraps s with a per-call timeout, a span, duration metrics and
// call logging. A non-positive timeout leaves the caller's deadline alone.
func Instrument(s Sender, timeout time.Duration) Sender {
	return &instrumentedSender{next: s, timeout: timeout}
}

func (s *instrumentedSender) Provider() string { return s.next.Provider() }

func (s *instrumentedSender) Send(ctx context.Context, msg Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "email.send",
		attribute.String("email.provider", s.next.Provider()),
		attribute.String("email.tag", msg.Tag),
	)
	defer span.End()

	start := time.Now()
	id, err := s.next.Send(ctx, msg)
	duration := metrics.MeasureDuration(start)

	status := "success"
	if err != nil {
		status = "error"
		tracing.RecordError(span, err)
	}
	metrics.EmailDispatchDuration.WithLabelValues(s.next.Provider(), status).Observe(duration)
	logger.LogAPICall(s.next.Provider(), "send_email", status, duration,
		zap.String("message_id", id),
		zap.Error(err),
	)

	return id, err
}
