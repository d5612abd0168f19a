package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadSubmission is a contact form submission after schema validation.
// Fields are trimmed but not yet sanitized.
type LeadSubmission struct {
	Name              string `json:"name" validate:"required,max=100"`
	Email             string `json:"email" validate:"required,email,max=254"`
	Phone             string `json:"phone" validate:"required,phone"`
	Message           string `json:"message" validate:"required,min=10,max=2000"`
	Company           string `json:"company"`
	VerificationToken string `json:"verificationToken" validate:"required"`

	// CompanyNotString is set when the hidden field held a non-string value
	CompanyNotString bool `json:"-"`
}

// HoneypotFilled reports whether the hidden company field carried anything
func (s *LeadSubmission) HoneypotFilled() bool {
	return s.CompanyNotString || strings.TrimSpace(s.Company) != ""
}

// Lead is a submission that passed every check and was dispatched
type Lead struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          string
	Message        string
	ClientIP       string
	EmailMessageID string
	CreatedAt      time.Time
}

// LeadResponse is the success body of the lead endpoint
type LeadResponse struct {
	Success bool `json:"success"`
}
