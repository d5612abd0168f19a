// Package captcha verifies human-verification widget tokens against a
// siteverify endpoint. Cloudflare Turnstile is the default; reCAPTCHA and
// hCaptcha expose the same form-encoded protocol.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/httpclient"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"go.uber.org/zap"
)

// TurnstileVerifyURL is Cloudflare Turnstile's siteverify endpoint
const TurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// maxResponseBytes caps how much of the siteverify response is read
const maxResponseBytes = 64 * 1024

var (
	// ErrVerificationFailed is returned when the service answered but rejected the token
	ErrVerificationFailed = errors.New("human verification failed")

	// ErrMissingSecret is returned by NewVerifier when no secret key is configured
	ErrMissingSecret = errors.New("captcha secret key is required")
)

// Response represents the siteverify response body
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action,omitempty"`
}

// Verifier handles token verification
type Verifier struct {
	secretKey  string
	verifyURL  string
	httpClient httpclient.Client
}

// NewVerifier creates a verifier. An empty verifyURL selects Turnstile.
// The secret key is mandatory: verification fails closed, so a verifier
// without one could never accept a submission.
func NewVerifier(secretKey, verifyURL string, httpClient httpclient.Client) (*Verifier, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrMissingSecret
	}
	if verifyURL == "" {
		verifyURL = TurnstileVerifyURL
	}
	return &Verifier{
		secretKey:  secretKey,
		verifyURL:  verifyURL,
		httpClient: httpClient,
	}, nil
}

// Verify exchanges token (and the client IP when known) for a verdict.
// Every failure mode returns a non-nil error: transport errors, non-2xx
// statuses, undecodable bodies and success=false (ErrVerificationFailed).
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (*Response, error) {
	start := time.Now()

	result, err := v.verify(ctx, token, remoteIP)

	status := "success"
	switch {
	case errors.Is(err, ErrVerificationFailed):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.CaptchaVerifyDuration.WithLabelValues(status).Observe(duration)

	if err != nil && status == "error" {
		logger.LogAPICall("captcha", "siteverify", "error", duration, zap.Error(err))
	}

	return result, err
}

func (v *Verifier) verify(ctx context.Context, token, remoteIP string) (*Response, error) {
	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", token)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("verification service returned status %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	if !result.Success {
		return &result, fmt.Errorf("%w: %s", ErrVerificationFailed, strings.Join(result.ErrorCodes, ","))
	}

	return &result, nil
}
