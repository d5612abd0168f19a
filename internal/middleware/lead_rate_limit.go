package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/ratelimit"
	apperrors "github.com/pnp-remodeling/pnp-remodeling-api/pkg/errors"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"go.uber.org/zap"
)

// Rate limit response headers
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// LeadRateLimitMiddleware applies the fixed-window limit per client IP.
// When the counter store fails the request goes through if failOpen is set,
// otherwise it is answered with 500.
func LeadRateLimitMiddleware(limiter *ratelimit.FixedWindow, failOpen bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := GetClientIP(c)

		res, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			metrics.RateLimitDecisions.WithLabelValues("store_error").Inc()
			if failOpen {
				logger.Warn("Rate limit store unavailable, allowing request",
					zap.String("client_ip", ip),
					zap.String("store", limiter.StoreName()),
					zap.Error(err))
				c.Next()
				return
			}
			abortWithError(c, http.StatusInternalServerError, models.CodeInternalError,
				"Internal error while processing the form.",
				apperrors.DependencyError("rate_limit_store", err))
			return
		}

		if res.Bypassed {
			metrics.RateLimitDecisions.WithLabelValues("bypassed").Inc()
			logger.Warn("Rate limiting bypassed: no counter store configured",
				zap.String("client_ip", ip))
			c.Next()
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
		c.Header(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			metrics.RateLimitDecisions.WithLabelValues("limited").Inc()
			abortWithError(c, http.StatusTooManyRequests, models.CodeRateLimited,
				"Too many requests. Please try again later.",
				errors.Join(apperrors.ErrRateLimited, errors.New("client_ip="+ip)))
			return
		}

		metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
