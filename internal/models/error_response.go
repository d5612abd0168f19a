package models

// Error codes returned in the "code" field of error responses
const (
	CodeInvalidContentType = "invalid_content_type"
	CodeRateLimited        = "rate_limited"
	CodeMalformedJSON      = "malformed_json"
	CodeValidationFailed   = "validation_failed"
	CodeSubmissionRejected = "submission_rejected"
	CodeVerificationFailed = "verification_failed"
	CodeInternalError      = "internal_error"
	CodeUnauthorized       = "unauthorized"
	CodeTooManyRequests    = "too_many_requests"
	CodeNotFound           = "not_found"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details map[string][]string `json:"details,omitempty"`
}
