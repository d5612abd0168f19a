package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/middleware"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/services"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/validation"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
)

// Client-facing messages. The rejection message is the same for every
// anti-abuse check so the response does not reveal which one fired.
const (
	msgMalformedJSON      = "Request body must be a valid JSON object."
	msgValidationFailed   = "Invalid form data."
	msgSubmissionRejected = "The submission could not be accepted."
	msgVerificationFailed = "Human verification failed. Please try again."
	msgInternalError      = "Internal error while processing the form."
)

type LeadHandler struct {
	service services.LeadServiceInterface
}

func NewLeadHandler(service services.LeadServiceInterface) *LeadHandler {
	return &LeadHandler{service: service}
}

// NewLead handles POST /new-lead. Content type and rate limit are enforced
// by middleware before the body is read.
func (h *LeadHandler) NewLead(c *gin.Context) {
	raw, err := decodeObject(c.Request.Body)
	if err != nil {
		metrics.LeadSubmissions.WithLabelValues("malformed").Inc()
		respondError(c, http.StatusBadRequest, models.CodeMalformedJSON, msgMalformedJSON, err)
		return
	}

	sub, fieldErrs := validation.ValidateLead(raw)
	if fieldErrs != nil {
		metrics.LeadSubmissions.WithLabelValues("invalid").Inc()
		respondErrorWithDetails(c, http.StatusBadRequest, models.CodeValidationFailed, msgValidationFailed, fieldErrs, fieldErrs)
		return
	}

	if _, err := h.service.Submit(c.Request.Context(), sub, middleware.GetClientIP(c)); err != nil {
		switch {
		case errors.Is(err, services.ErrHoneypotTriggered):
			respondError(c, http.StatusBadRequest, models.CodeSubmissionRejected, msgSubmissionRejected, err)
		case errors.Is(err, services.ErrVerificationFailed):
			respondError(c, http.StatusBadRequest, models.CodeVerificationFailed, msgVerificationFailed, err)
		default:
			respondError(c, http.StatusInternalServerError, models.CodeInternalError, msgInternalError, err)
		}
		return
	}

	c.JSON(http.StatusOK, models.LeadResponse{Success: true})
}

// decodeObject reads exactly one JSON object from body. Anything after it
// other than whitespace makes the body malformed.
func decodeObject(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, errors.New("empty body")
	}
	dec := json.NewDecoder(body)

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("body is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return raw, nil
}
