package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, code, message string, err error) {
	attachError(c, err)
	c.JSON(status, models.ErrorResponse{Error: message, Code: code})
}

// respondErrorWithDetails sends an error response with per-field messages.
func respondErrorWithDetails(c *gin.Context, status int, code, message string, details map[string][]string, err error) { //nolint:unparam
	attachError(c, err)
	c.JSON(status, models.ErrorResponse{Error: message, Code: code, Details: details})
}
