package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
)

// abortWithError writes the standard error body and stops the chain
func abortWithError(c *gin.Context, status int, code, message string, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}
