package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pnp-remodeling/pnp-remodeling-api/config"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/handlers"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/middleware"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/ratelimit"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// leadBodyLimit caps the lead form body
const leadBodyLimit = 32 * 1024

// routerDeps carries everything the HTTP layer needs, already constructed
type routerDeps struct {
	leadHandler    *handlers.LeadHandler
	healthHandler  *handlers.HealthHandler
	leadLimiter    *ratelimit.FixedWindow
	generalLimiter *middleware.RateLimiter
}

// registerLeadRoutes registers the lead form endpoint for a given router group
func registerLeadRoutes(group *gin.RouterGroup, cfg *config.Config, deps routerDeps) {
	group.POST("/new-lead",
		middleware.RequireJSON(),
		middleware.LeadRateLimitMiddleware(deps.leadLimiter, cfg.RateLimit.FailOpen),
		middleware.BodySizeLimitMiddleware(leadBodyLimit),
		deps.leadHandler.NewLead,
	)
}

func setupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	router := gin.New()

	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("Invalid TRUSTED_PROXIES, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil) //nolint:errcheck // nil is always valid
	}

	// Global middleware
	router.Use(middleware.ClientIPMiddleware())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// CORS configuration - SECURITY: Only allow specific origins
	allowedOrigins := append([]string{}, cfg.Server.AllowedOrigins...)
	// Allow localhost in development
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:4321")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRateLimitLimit, middleware.HeaderRateLimitRemaining, middleware.HeaderRateLimitReset},
		MaxAge:        12 * time.Hour,
	}))

	// API routes
	api := router.Group("/api")
	// Utility endpoints (not versioned - operational endpoints)
	api.GET("/healthcheck", deps.generalLimiter.Middleware(), deps.healthHandler.Healthcheck)
	api.GET("/metrics",
		deps.generalLimiter.Middleware(),
		middleware.BearerTokenMiddleware(cfg.Metrics.AuthToken),
		gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})),
	)

	// The website posts to /api/new-lead; /api/v1 mirrors it for versioned clients
	registerLeadRoutes(api, cfg, deps)
	registerLeadRoutes(router.Group("/api/v1"), cfg, deps)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found.", Code: models.CodeNotFound})
	})

	return router
}
