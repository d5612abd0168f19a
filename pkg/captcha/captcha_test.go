package captcha_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/captcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPClient mocks the HTTP client
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// formMatching matches a siteverify POST carrying the expected form values
func formMatching(token, remoteIP string) interface{} {
	return mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPost || req.URL.String() != captcha.TurnstileVerifyURL {
			return false
		}
		if req.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			return false
		}
		body, err := req.GetBody()
		if err != nil {
			return false
		}
		raw, _ := io.ReadAll(body)
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return false
		}
		if values.Get("secret") != "test-secret-key" || values.Get("response") != token {
			return false
		}
		if remoteIP == "" {
			return !values.Has("remoteip")
		}
		return values.Get("remoteip") == remoteIP
	})
}

func newVerifier(t *testing.T, client *MockHTTPClient) *captcha.Verifier {
	t.Helper()
	verifier, err := captcha.NewVerifier("test-secret-key", "", client)
	require.NoError(t, err)
	return verifier
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := captcha.NewVerifier("  ", "", new(MockHTTPClient))
	assert.ErrorIs(t, err, captcha.ErrMissingSecret)
}

func TestVerifier_Verify_Success(t *testing.T) {
	mockClient := new(MockHTTPClient)
	verifier := newVerifier(t, mockClient)

	mockClient.On("Do", formMatching("valid-token", "203.0.113.9")).
		Return(jsonResponse(200, `{"success": true, "challenge_ts": "2024-01-01T00:00:00Z", "hostname": "pnp-remodeling.com"}`), nil)

	result, err := verifier.Verify(context.Background(), "valid-token", "203.0.113.9")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pnp-remodeling.com", result.Hostname)
	mockClient.AssertExpectations(t)
}

func TestVerifier_Verify_OmitsEmptyRemoteIP(t *testing.T) {
	mockClient := new(MockHTTPClient)
	verifier := newVerifier(t, mockClient)

	mockClient.On("Do", formMatching("valid-token", "")).
		Return(jsonResponse(200, `{"success": true}`), nil)

	_, err := verifier.Verify(context.Background(), "valid-token", "")

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestVerifier_Verify_Rejected(t *testing.T) {
	mockClient := new(MockHTTPClient)
	verifier := newVerifier(t, mockClient)

	mockClient.On("Do", mock.Anything).
		Return(jsonResponse(200, `{"success": false, "error-codes": ["invalid-input-response", "timeout-or-duplicate"]}`), nil)

	result, err := verifier.Verify(context.Background(), "bad-token", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, captcha.ErrVerificationFailed)
	assert.Contains(t, err.Error(), "invalid-input-response,timeout-or-duplicate")
	require.NotNil(t, result)
	assert.Equal(t, []string{"invalid-input-response", "timeout-or-duplicate"}, result.ErrorCodes)
}

func TestVerifier_Verify_FailsClosed(t *testing.T) {
	tests := []struct {
		name         string
		response     *http.Response
		transportErr error
		errContains  string
	}{
		{
			name:         "network error",
			transportErr: errors.New("connection refused"),
			errContains:  "failed to verify token",
		},
		{
			name:        "non-success status",
			response:    jsonResponse(502, `{"success": true}`),
			errContains: "status 502",
		},
		{
			name:        "malformed body",
			response:    jsonResponse(200, `{invalid-json`),
			errContains: "failed to decode verification response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockHTTPClient)
			verifier := newVerifier(t, mockClient)

			if tt.transportErr != nil {
				mockClient.On("Do", mock.Anything).Return(nil, tt.transportErr)
			} else {
				mockClient.On("Do", mock.Anything).Return(tt.response, nil)
			}

			_, err := verifier.Verify(context.Background(), "token", "")

			require.Error(t, err)
			assert.NotErrorIs(t, err, captcha.ErrVerificationFailed)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
