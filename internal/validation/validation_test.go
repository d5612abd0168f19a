package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pnp-remodeling/pnp-remodeling-api/pkg/errors"
)

func validRaw() map[string]any {
	return map[string]any{
		"name":              "Jane Doe",
		"email":             "jane@example.com",
		"phone":             "555-123-4567",
		"message":           "Need a kitchen remodel",
		"company":           "",
		"verificationToken": "tok",
	}
}

func TestValidateLead_Valid(t *testing.T) {
	raw := validRaw()
	raw["name"] = "  Jane Doe  "

	sub, errs := ValidateLead(raw)
	require.Nil(t, errs)
	require.NotNil(t, sub)
	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, "555-123-4567", sub.Phone)
	assert.Equal(t, "tok", sub.VerificationToken)
	assert.Empty(t, sub.Company)
}

func TestValidateLead_FieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		message string
	}{
		{"empty name", "name", "   ", "Name is required."},
		{"long name", "name", strings.Repeat("a", 101), "Name is too long."},
		{"bad email", "email", "not-an-email", "Email address is invalid."},
		{"long email", "email", strings.Repeat("a", 250) + "@example.com", "Email address is too long."},
		{"short phone", "phone", "12345", "Phone number is invalid."},
		{"letters in phone", "phone", "555-CALL-NOW", "Phone number is invalid."},
		{"long phone", "phone", strings.Repeat("1", 21), "Phone number is invalid."},
		{"short message", "message", "Hi", "Message is too short."},
		{"long message", "message", strings.Repeat("x", 2001), "Message is too long."},
		{"missing token", "verificationToken", "", "Human verification is missing."},
		{"number as name", "name", 42, "Must be a string."},
		{"object as message", "message", map[string]any{"a": 1}, "Must be a string."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			raw[tt.field] = tt.value

			sub, errs := ValidateLead(raw)
			assert.Nil(t, sub)
			require.Len(t, errs, 1, "only %s should fail: %v", tt.field, errs)
			assert.Equal(t, []string{tt.message}, errs[tt.field])
		})
	}
}

func TestFieldErrors_IsInvalidInput(t *testing.T) {
	raw := validRaw()
	raw["email"] = "nope"

	_, errs := ValidateLead(raw)
	require.NotNil(t, errs)

	var err error = errs
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestValidateLead_PhoneFormats(t *testing.T) {
	for _, phone := range []string{"+1 (555) 123-4567", "555.123.4567", "5551234", "+34 600 000 000"} {
		raw := validRaw()
		raw["phone"] = phone
		_, errs := ValidateLead(raw)
		assert.Nil(t, errs, phone)
	}
}

func TestValidateLead_MessageBoundaries(t *testing.T) {
	raw := validRaw()
	raw["message"] = strings.Repeat("x", 10)
	_, errs := ValidateLead(raw)
	assert.Nil(t, errs)

	raw["message"] = strings.Repeat("ñ", 2000)
	_, errs = ValidateLead(raw)
	assert.Nil(t, errs, "length counts characters, not bytes")
}

func TestValidateLead_EmptyObject(t *testing.T) {
	sub, errs := ValidateLead(map[string]any{})
	assert.Nil(t, sub)
	assert.Len(t, errs, 5)
	assert.NotContains(t, errs, "company")
	for field, msgs := range errs {
		assert.Len(t, msgs, 1, field)
	}
}

func TestValidateLead_NullValues(t *testing.T) {
	raw := validRaw()
	raw["company"] = nil

	sub, errs := ValidateLead(raw)
	require.Nil(t, errs)
	assert.Empty(t, sub.Company)
}

func TestValidateLead_TurnstileAlias(t *testing.T) {
	raw := validRaw()
	delete(raw, "verificationToken")
	raw["turnstileToken"] = "legacy"

	sub, errs := ValidateLead(raw)
	require.Nil(t, errs)
	assert.Equal(t, "legacy", sub.VerificationToken)

	raw["verificationToken"] = "current"
	sub, errs = ValidateLead(raw)
	require.Nil(t, errs)
	assert.Equal(t, "current", sub.VerificationToken)
}

func TestValidateLead_HoneypotIsNotAValidationError(t *testing.T) {
	raw := validRaw()
	raw["company"] = "Acme Bots Inc"

	sub, errs := ValidateLead(raw)
	require.Nil(t, errs)
	assert.Equal(t, "Acme Bots Inc", sub.Company)
}

func TestValidateLead_NonStringHoneypot(t *testing.T) {
	for _, value := range []any{12345, true, map[string]any{"a": 1}, []any{"x"}} {
		raw := validRaw()
		raw["company"] = value

		sub, errs := ValidateLead(raw)
		require.Nil(t, errs, "company=%v", value)
		assert.True(t, sub.HoneypotFilled(), "company=%v", value)
	}

	raw := validRaw()
	raw["company"] = nil
	sub, errs := ValidateLead(raw)
	require.Nil(t, errs)
	assert.False(t, sub.HoneypotFilled())
}

func TestValidateLead_NonStringHoneypotNeverNamedInErrors(t *testing.T) {
	raw := validRaw()
	raw["company"] = 12345
	raw["phone"] = "12"

	_, errs := ValidateLead(raw)
	require.NotNil(t, errs)
	assert.False(t, errs.Has("company"))
	assert.True(t, errs.Has("phone"))
}

func TestFieldErrors_Error(t *testing.T) {
	errs := FieldErrors{}
	errs.Add("phone", "Phone number is invalid.")
	assert.True(t, errs.Has("phone"))
	assert.False(t, errs.Has("name"))
	assert.Contains(t, errs.Error(), "phone")
}
