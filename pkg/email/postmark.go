package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkSender struct {
	client *postmark.Client
}

// NewPostmarkSender creates a Postmark-backed sender. Only the server token is
// needed for sending; the account token is optional.
func NewPostmarkSender(serverToken, accountToken string) (Sender, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	return &postmarkSender{client: postmark.NewClient(serverToken, accountToken)}, nil
}

func (s *postmarkSender) Provider() string { return ProviderPostmark }

// Send uses Postmark's transactional API. Tracking stays off: the body is
// plain text and goes to the business owner, not to a customer.
func (s *postmarkSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     msg.From,
		To:       msg.To,
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		TextBody: msg.Text,
	})
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("%w: postmark error %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}

	return resp.MessageID, nil
}
