package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"go.uber.org/zap"
)

// BearerTokenMiddleware requires "Authorization: Bearer <token>". An empty
// token disables the check.
func BearerTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.Warn("Invalid or missing bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", GetClientIP(c)))
			abortWithError(c, http.StatusUnauthorized, models.CodeUnauthorized,
				"Invalid or missing authentication token", nil)
			return
		}

		c.Next()
	}
}
