package errors

import (
	"errors"
	"fmt"
)

// Common application errors with proper types for error handling

var (
	// ErrInvalidInput indicates the caller sent data that failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrRejected indicates a submission was refused by an anti-abuse check
	ErrRejected = errors.New("submission rejected")

	// ErrRateLimited indicates the caller exceeded its request allowance
	ErrRateLimited = errors.New("rate limited")

	// ErrDependency indicates an external collaborator failed or timed out
	ErrDependency = errors.New("dependency failure")

	// ErrConfiguration indicates required configuration is missing or invalid
	ErrConfiguration = errors.New("invalid configuration")
)

// RejectedError creates a rejection error recording which check fired.
// The reason is for logs only and must not reach the response body.
func RejectedError(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrRejected)
}

// DependencyError wraps a failure of the named external service
func DependencyError(service string, err error) error {
	return fmt.Errorf("%s: %w: %w", service, ErrDependency, err)
}

// ConfigurationError creates a configuration error for the given key
func ConfigurationError(key, reason string) error {
	return fmt.Errorf("%s %s: %w", key, reason, ErrConfiguration)
}
