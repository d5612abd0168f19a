// Package validation checks lead submissions against the form schema and
// reports one human-readable message per invalid field.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	apperrors "github.com/pnp-remodeling/pnp-remodeling-api/pkg/errors"
)

const (
	FieldName              = "name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldMessage           = "message"
	FieldCompany           = "company"
	FieldVerificationToken = "verificationToken"

	// legacy key sent by older frontend builds
	fieldTurnstileToken = "turnstileToken"
)

var phonePattern = regexp.MustCompile(`^[0-9+\-()\s.]{7,20}$`)

// FieldErrors maps a JSON field name to its messages
type FieldErrors map[string][]string

// Add records msg for field
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Has reports whether field already has an error
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Error implements error so FieldErrors can travel through error returns
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
}

func (fe FieldErrors) Unwrap() error {
	return apperrors.ErrInvalidInput
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateLead reads the known fields out of a decoded JSON object, trims
// them and validates the result. Unknown keys are ignored. A nil FieldErrors
// means the submission is valid.
func ValidateLead(raw map[string]any) (*models.LeadSubmission, FieldErrors) {
	errs := FieldErrors{}

	tokenKey := FieldVerificationToken
	if v, ok := raw[FieldVerificationToken]; !ok || v == nil || v == "" {
		if _, alias := raw[fieldTurnstileToken]; alias {
			tokenKey = fieldTurnstileToken
		}
	}

	sub := &models.LeadSubmission{
		Name:              stringField(raw, FieldName, FieldName, errs),
		Email:             stringField(raw, FieldEmail, FieldEmail, errs),
		Phone:             stringField(raw, FieldPhone, FieldPhone, errs),
		Message:           stringField(raw, FieldMessage, FieldMessage, errs),
		VerificationToken: stringField(raw, tokenKey, FieldVerificationToken, errs),
	}
	sub.Company, sub.CompanyNotString = honeypotField(raw)

	if err := instance().Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); !ok {
			errs.Add("_", "invalid submission")
			return nil, errs
		}
		for _, fe := range verrs {
			if errs.Has(fe.Field()) {
				continue
			}
			errs.Add(fe.Field(), message(fe))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return sub, nil
}

// stringField returns the trimmed string under key. Missing and null values
// read as empty; any other non-string is reported against errField.
func stringField(raw map[string]any, key, errField string, errs FieldErrors) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		errs.Add(errField, "Must be a string.")
		return ""
	}
	return strings.TrimSpace(s)
}

// honeypotField never reports a field error, so a response cannot single
// out the hidden field. A non-string value marks the honeypot as filled.
func honeypotField(raw map[string]any) (string, bool) {
	v, ok := raw[FieldCompany]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", true
	}
	return strings.TrimSpace(s), false
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type
	if ok {
		*target = verrs
	}
	return ok
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case FieldName:
		if fe.Tag() == "max" {
			return "Name is too long."
		}
		return "Name is required."
	case FieldEmail:
		if fe.Tag() == "max" {
			return "Email address is too long."
		}
		return "Email address is invalid."
	case FieldPhone:
		return "Phone number is invalid."
	case FieldMessage:
		if fe.Tag() == "max" {
			return "Message is too long."
		}
		return "Message is too short."
	case FieldVerificationToken:
		return "Human verification is missing."
	default:
		return fe.Field() + " is invalid."
	}
}
