package services

import (
	"context"

	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/repository"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/captcha"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/trigger"
)

// LeadServiceInterface defines the interface for lead submission
type LeadServiceInterface interface {
	Submit(ctx context.Context, sub *models.LeadSubmission, clientIP string) (*models.Lead, error)
}

// Verifier checks a human-verification token
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*captcha.Response, error)
}

// LeadArchive stores dispatched leads
type LeadArchive interface {
	Save(ctx context.Context, lead *models.Lead) error
}

// EventTrigger announces accepted leads to external automation
type EventTrigger interface {
	CallAsync(ev trigger.Event)
}

// Ensure concrete types implement interfaces
var (
	_ LeadServiceInterface = (*LeadService)(nil)
	_ Verifier             = (*captcha.Verifier)(nil)
	_ LeadArchive          = (*repository.LeadRepository)(nil)
	_ EventTrigger         = (*trigger.Notifier)(nil)
)
