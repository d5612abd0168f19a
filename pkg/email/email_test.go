package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/circuitbreaker"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		From:    "PNP Remodeling <no-reply@pnp-remodeling.com>",
		To:      "owner@example.com",
		ReplyTo: "jane@example.com",
		Subject: "New lead: Jane Doe",
		Text:    "Name: Jane Doe",
		Tag:     "new-lead",
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Message)
		wantErr bool
	}{
		{name: "valid", mutate: func(m *Message) {}},
		{name: "missing recipient", mutate: func(m *Message) { m.To = " " }, wantErr: true},
		{name: "missing sender", mutate: func(m *Message) { m.From = "" }, wantErr: true},
		{name: "missing subject", mutate: func(m *Message) { m.Subject = "" }, wantErr: true},
		{name: "multi-line subject", mutate: func(m *Message) { m.Subject = "a\r\nBcc: x@example.com" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := testMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults to resend", func(t *testing.T) {
		s, err := New(Config{ResendAPIKey: "re_test"})
		require.NoError(t, err)
		assert.Equal(t, ProviderResend, s.Provider())
	})

	t.Run("resend without key", func(t *testing.T) {
		s, err := New(Config{Provider: "resend"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, s)
	})

	t.Run("postmark", func(t *testing.T) {
		s, err := New(Config{Provider: "Postmark", PostmarkServerToken: "server"})
		require.NoError(t, err)
		assert.Equal(t, ProviderPostmark, s.Provider())
	})

	t.Run("postmark without server token", func(t *testing.T) {
		_, err := New(Config{Provider: "postmark", PostmarkAccountToken: "account"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "POSTMARK_SERVER_TOKEN")
	})

	t.Run("log", func(t *testing.T) {
		s, err := New(Config{Provider: "log"})
		require.NoError(t, err)
		assert.Equal(t, ProviderLog, s.Provider())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "smtp"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("PNP Remodeling <no-reply@pnp-remodeling.com>"))
	assert.NoError(t, ValidateAddress("owner@example.com"))
	assert.ErrorIs(t, ValidateAddress("not an address"), ErrInvalidConfig)
}

func TestResendSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	client := resend.NewClient("re_test")
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	sender := &resendSender{client: client}

	id, err := sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)
	assert.Equal(t, "New lead: Jane Doe", got["subject"])
	assert.Equal(t, "Name: Jane Doe", got["text"])
	assert.Equal(t, []any{"owner@example.com"}, got["to"])
	assert.Nil(t, got["html"])
}

func TestResendSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	client := resend.NewClient("re_test")
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	sender := &resendSender{client: client}

	id, err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrFailedToSendEmail)
	assert.Empty(t, id)
}

func TestPostmarkSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"owner@example.com","MessageID":"pm-1","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	client := postmark.NewClient("server-token", "")
	client.BaseURL = srv.URL
	sender := &postmarkSender{client: client}

	id, err := sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "pm-1", id)
	assert.Equal(t, "Name: Jane Doe", got["TextBody"])
	assert.Equal(t, "jane@example.com", got["ReplyTo"])
}

func TestPostmarkSender_ErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer srv.Close()

	client := postmark.NewClient("server-token", "")
	client.BaseURL = srv.URL
	sender := &postmarkSender{client: client}

	_, err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrFailedToSendEmail)
	assert.Contains(t, err.Error(), "300")
}

func TestLogSender_Send(t *testing.T) {
	id, err := NewLogSender().Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "log-")

	_, err = NewLogSender().Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

type slowSender struct{}

func (slowSender) Provider() string { return "slow" }

func (slowSender) Send(ctx context.Context, _ Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInstrument_AppliesTimeout(t *testing.T) {
	sender := Instrument(slowSender{}, 20*time.Millisecond)
	assert.Equal(t, "slow", sender.Provider())

	start := time.Now()
	_, err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

type failingSender struct{ calls int }

func (f *failingSender) Provider() string { return "failing" }

func (f *failingSender) Send(context.Context, Message) (string, error) {
	f.calls++
	return "", ErrFailedToSendEmail
}

func TestWithBreaker_FailsFastWhenOpen(t *testing.T) {
	inner := &failingSender{}
	cfg := circuitbreaker.DefaultConfig("email-test")
	cfg.Timeout = time.Hour
	sender := WithBreaker(inner, cfg)
	assert.Equal(t, "failing", sender.Provider())

	for i := 0; i < 5; i++ {
		_, err := sender.Send(context.Background(), testMessage())
		assert.ErrorIs(t, err, ErrFailedToSendEmail)
	}

	_, err := sender.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrFailedToSendEmail)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 5, inner.calls)
}

func TestWithBreaker_InvalidMessagesDoNotTrip(t *testing.T) {
	sender := WithBreaker(NewLogSender(), circuitbreaker.DefaultConfig("email-invalid-test"))

	for i := 0; i < 10; i++ {
		_, err := sender.Send(context.Background(), Message{})
		assert.ErrorIs(t, err, ErrInvalidMessage)
	}

	id, err := sender.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
