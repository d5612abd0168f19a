package services_test

import (
	"context"

	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/captcha"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/email"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/trigger"
	"github.com/stretchr/testify/mock"
)

// MockVerifier is a mock implementation of services.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (*captcha.Response, error) {
	args := m.Called(ctx, token, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*captcha.Response), args.Error(1)
}

// MockSender is a mock implementation of email.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockSender) Provider() string {
	return "mock"
}

// MockArchive is a mock implementation of services.LeadArchive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Save(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockTrigger is a mock implementation of services.EventTrigger
type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) CallAsync(ev trigger.Event) {
	m.Called(ev)
}
