package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/clientip"
)

// ClientIPContextKey holds the resolved client address for the request
const ClientIPContextKey = "client_ip"

// ClientIPMiddleware resolves the client address once so the rate limiter,
// the handler and the request log agree on it.
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ClientIPContextKey, clientip.Resolve(c.Request))
		c.Next()
	}
}

// GetClientIP returns the address stored by ClientIPMiddleware, resolving
// it on the spot when the middleware did not run.
func GetClientIP(c *gin.Context) string {
	if ip := c.GetString(ClientIPContextKey); ip != "" {
		return ip
	}
	return clientip.Resolve(c.Request)
}
