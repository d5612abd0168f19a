package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/circuitbreaker"
)

type guardedSender struct {
	next    Sender
	breaker *circuitbreaker.Breaker
}

// WithBreaker stops calling the provider while it keeps failing, so a dead
// transport answers immediately instead of holding every request for the
// full timeout. Invalid messages do not count as provider failures.
func WithBreaker(s Sender, cfg circuitbreaker.Config) Sender {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrInvalidMessage)
	}
	return &guardedSender{next: s, breaker: circuitbreaker.New(cfg)}
}

func (s *guardedSender) Provider() string { return s.next.Provider() }

func (s *guardedSender) Send(ctx context.Context, msg Message) (string, error) {
	id, err := circuitbreaker.Execute(s.breaker, func() (string, error) {
		return s.next.Send(ctx, msg)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "", fmt.Errorf("%w: %w", ErrFailedToSendEmail, err)
	}
	return id, err
}
