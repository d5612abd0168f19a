package repository

import (
	"context"

	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
)

// LeadDataSource is the storage backing LeadRepository
type LeadDataSource interface {
	InsertLead(ctx context.Context, lead *models.Lead) error
}

// LeadRepository handles archived lead data access
type LeadRepository struct {
	source LeadDataSource
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(source LeadDataSource) *LeadRepository {
	return &LeadRepository{source: source}
}

// Save archives a lead that has already been dispatched
func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	return r.source.InsertLead(ctx, lead)
}
