// Package email sends plain-text notifications through a transactional email
// provider. Resend and Postmark are supported; a log-only sender exists for
// local development.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Provider names accepted by New
const (
	ProviderResend   = "resend"
	ProviderPostmark = "postmark"
	ProviderLog      = "log"
)

var (
	ErrFailedToSendEmail = errors.New("failed to send email")
	ErrInvalidConfig     = errors.New("invalid email configuration")
	ErrInvalidMessage    = errors.New("invalid email message")
)

// Message is a plain-text email. HTML is intentionally not supported.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	Tag     string
}

// Validate checks the fields every provider needs
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: subject must be a single line", ErrInvalidMessage)
	}
	return nil
}

// Sender dispatches a message and returns the provider's message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	Provider() string
}

// Config selects and configures a provider
type Config struct {
	Provider             string
	ResendAPIKey         string
	PostmarkServerToken  string
	PostmarkAccountToken string
}

// New builds the Sender for cfg.Provider. A missing credential is a
// configuration error so the process refuses to start without a transport.
func New(cfg Config) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderResend, "":
		return NewResendSender(cfg.ResendAPIKey)
	case ProviderPostmark:
		return NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	case ProviderLog:
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// ValidateAddress reports whether addr parses as an RFC 5322 address,
// with or without a display name.
func ValidateAddress(addr string) error {
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: %q is not a valid address", ErrInvalidConfig, addr)
	}
	return nil
}
