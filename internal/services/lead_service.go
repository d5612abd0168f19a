package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/notification"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/captcha"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/clientip"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/email"
	apperrors "github.com/pnp-remodeling/pnp-remodeling-api/pkg/errors"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/sanitize"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/tracing"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/trigger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	archiveTimeout   = 5 * time.Second
	leadCreatedEvent = "lead.created"
)

var (
	// ErrHoneypotTriggered is returned when the hidden company field was filled
	ErrHoneypotTriggered = apperrors.RejectedError("honeypot field filled")

	// ErrVerificationFailed is returned when the human-verification check did
	// not pass, including when the verification service was unreachable
	ErrVerificationFailed = apperrors.RejectedError("human verification failed")
)

// LeadService runs the post-validation part of the lead pipeline:
// bot checks, sanitization, notification dispatch and bookkeeping.
type LeadService struct {
	verifier Verifier
	sender   email.Sender
	composer *notification.Composer
	archive  LeadArchive
	events   EventTrigger
	now      func() time.Time
}

// NewLeadService creates a lead service. archive and events are optional.
func NewLeadService(
	verifier Verifier,
	sender email.Sender,
	composer *notification.Composer,
	archive LeadArchive,
	events EventTrigger,
) *LeadService {
	return &LeadService{
		verifier: verifier,
		sender:   sender,
		composer: composer,
		archive:  archive,
		events:   events,
		now:      time.Now,
	}
}

// Submit processes a schema-valid submission. Nothing leaves the process
// unless the honeypot is empty and verification passed.
func (s *LeadService) Submit(ctx context.Context, sub *models.LeadSubmission, clientIP string) (*models.Lead, error) {
	ctx, span := tracing.StartSpan(ctx, "lead.submit", attribute.String("client.address", clientIP))
	defer span.End()

	if sub.HoneypotFilled() {
		metrics.LeadSubmissions.WithLabelValues("honeypot").Inc()
		logger.Warn("Lead rejected by honeypot", zap.String("client_ip", clientIP))
		return nil, ErrHoneypotTriggered
	}

	if err := s.verify(ctx, sub.VerificationToken, clientIP); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	lead := &models.Lead{
		ID:        uuid.New(),
		Name:      sanitize.Text(sub.Name),
		Email:     sanitize.Text(sub.Email),
		Phone:     sanitize.Text(sub.Phone),
		Message:   sanitize.Text(sub.Message),
		ClientIP:  clientIP,
		CreatedAt: s.now().UTC(),
	}
	span.SetAttributes(attribute.String("lead.id", lead.ID.String()))

	messageID, err := s.sender.Send(ctx, s.composer.Compose(lead))
	if err != nil {
		metrics.LeadSubmissions.WithLabelValues("dispatch_failed").Inc()
		logger.Error("Failed to dispatch lead notification",
			zap.String("lead_id", lead.ID.String()),
			zap.String("email_preview", sanitize.MaskEmail(lead.Email)),
			zap.String("provider", s.sender.Provider()),
			zap.Error(err))
		tracing.RecordError(span, err)
		return nil, apperrors.DependencyError("email", err)
	}
	lead.EmailMessageID = messageID

	metrics.LeadSubmissions.WithLabelValues("success").Inc()
	logger.Info("New lead accepted",
		zap.String("lead_id", lead.ID.String()),
		zap.String("client_ip", clientIP),
		zap.String("email_preview", sanitize.MaskEmail(lead.Email)),
		zap.Int("message_length", len([]rune(lead.Message))),
		zap.String("message_id", messageID))

	s.archiveLead(ctx, lead)
	if s.events != nil {
		s.events.CallAsync(trigger.Event{
			Type:      leadCreatedEvent,
			RecordID:  lead.ID.String(),
			CreatedAt: lead.CreatedAt,
		})
	}

	return lead, nil
}

// verify fails closed: any error from the verifier rejects the submission.
// The "unknown" sentinel is never forwarded as the client address.
func (s *LeadService) verify(ctx context.Context, token, clientIP string) error {
	remoteIP := clientIP
	if clientip.IsUnknown(remoteIP) {
		remoteIP = ""
	}

	resp, err := s.verifier.Verify(ctx, token, remoteIP)
	if err == nil {
		return nil
	}

	metrics.LeadSubmissions.WithLabelValues("verification_failed").Inc()
	if errors.Is(err, captcha.ErrVerificationFailed) {
		var codes []string
		if resp != nil {
			codes = resp.ErrorCodes
		}
		logger.Warn("Human verification rejected token",
			zap.String("client_ip", clientIP),
			zap.Strings("error_codes", codes))
	} else {
		logger.Error("Human verification unavailable",
			zap.String("client_ip", clientIP),
			zap.Error(apperrors.DependencyError("captcha", err)))
	}

	return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
}

// archiveLead stores the lead when an archive is configured. The email was
// already sent, so failures are logged and never surfaced to the caller.
func (s *LeadService) archiveLead(ctx context.Context, lead *models.Lead) {
	if s.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := s.archive.Save(ctx, lead); err != nil {
		logger.Error("Failed to archive lead",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
	}
}
