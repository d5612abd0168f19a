package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type resendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend-backed sender
func NewResendSender(apiKey string) (Sender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: RESEND_API_KEY is required", ErrInvalidConfig)
	}
	return &resendSender{client: resend.NewClient(apiKey)}, nil
}

func (s *resendSender) Provider() string { return ProviderResend }

func (s *resendSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
	if msg.Tag != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: msg.Tag}}
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	if sent == nil || sent.Id == "" {
		return "", fmt.Errorf("%w: resend returned no message id", ErrFailedToSendEmail)
	}

	return sent.Id, nil
}
