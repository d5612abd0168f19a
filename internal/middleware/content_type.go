package middleware

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
)

// RequireJSON rejects requests whose Content-Type is not application/json.
// Parameters such as charset are allowed.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		contentType := c.GetHeader("Content-Type")
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			abortWithError(c, http.StatusUnsupportedMediaType, models.CodeInvalidContentType,
				"Content-Type must be application/json",
				fmt.Errorf("unsupported content type %q", contentType))
			return
		}
		c.Next()
	}
}
