package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pnp-remodeling/pnp-remodeling-api/config"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/cache"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/database/postgres"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/handlers"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/middleware"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/notification"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/ratelimit"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/repository"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/services"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/captcha"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/circuitbreaker"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/db"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/email"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/httpclient"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/profiling"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/redisconn"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/retry"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/tracing"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/trigger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// newLimiterStore picks the counter store for RATE_LIMIT_STORE. It returns
// the Redis client as well so it can be health-checked and closed.
func newLimiterStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, *redis.Client, error) {
	mode := cfg.RateLimit.Store
	if mode == config.RateLimitStoreAuto {
		mode = config.RateLimitStoreDisabled
		if cfg.Redis.URL != "" {
			mode = config.RateLimitStoreRedis
		}
	}

	switch mode {
	case config.RateLimitStoreRedis:
		client, err := redisconn.Connect(ctx, redisconn.Config{
			URL:   cfg.Redis.URL,
			Retry: retry.StartupConfig(),
		})
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisStore(client), client, nil
	case config.RateLimitStoreMemory:
		logger.Warn("Using in-process rate limit counters; limits are per replica")
		return ratelimit.NewMemoryStore(cache.NewCounterCache("rate_limit")), nil, nil
	default:
		logger.Warn("Rate limiting disabled: no counter store configured")
		return nil, nil, nil
	}
}

// newLeadArchive opens the optional Postgres archive
func newLeadArchive(ctx context.Context, cfg *config.Config) (*postgres.Client, error) {
	if cfg.Database.URL == "" {
		logger.Info("Lead archive disabled: DATABASE_URL not set")
		return nil, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConns,
		MinConns:   cfg.Database.MinConns,
		CACertPath: cfg.Database.CACertPath,
		Retry:      retry.StartupConfig(),
	})
	if err != nil {
		return nil, err
	}
	return postgres.NewClient(pool), nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PNP Remodeling API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.AlloyEndpoint,
		SampleRatio:       cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling
	stopProfiling, err := profiling.Start(profiling.Config{
		Enabled:        cfg.Profiling.Enabled,
		Endpoint:       cfg.Profiling.Endpoint,
		AppName:        cfg.Profiling.AppName,
		SampleTypes:    cfg.Profiling.SampleTypes,
		UploadInterval: time.Duration(cfg.Profiling.UploadIntervalSeconds) * time.Second,
	}, profiling.Labels{
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		logger.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer stopProfiling()

	startupCtx := context.Background()

	// Rate limit counter store
	store, redisClient, err := newLimiterStore(startupCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	leadLimiter, err := ratelimit.New(ratelimit.Config{
		Limit:  cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Prefix: cfg.RateLimit.Prefix,
	}, store)
	if err != nil {
		logger.Fatal("Invalid rate limit configuration", zap.Error(err))
	}

	// Optional lead archive
	// NOTE: migrations run separately via the migrate command
	pgClient, err := newLeadArchive(startupCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database connection pool", zap.Error(err))
	}
	if pgClient != nil {
		defer pgClient.Close()
	}

	// External clients
	verifier, err := captcha.NewVerifier(cfg.Captcha.SecretKey, cfg.Captcha.VerifyURL,
		httpclient.NewStandardClient(cfg.Captcha.Timeout))
	if err != nil {
		logger.Fatal("Failed to initialize human verification", zap.Error(err))
	}

	sender, err := email.New(email.Config{
		Provider:             cfg.Email.Provider,
		ResendAPIKey:         cfg.Email.ResendAPIKey,
		PostmarkServerToken:  cfg.Email.PostmarkServerToken,
		PostmarkAccountToken: cfg.Email.PostmarkAccountToken,
	})
	if err != nil {
		logger.Fatal("Failed to initialize email transport", zap.Error(err))
	}
	sender = email.WithBreaker(email.Instrument(sender, cfg.Email.Timeout), circuitbreaker.DefaultConfig("email"))

	notifier := trigger.New(cfg.EventTriggers.LeadCreatedTriggerURL, httpclient.NewStandardClient(0))

	// Services; archive stays a nil interface when Postgres is not configured
	var archive services.LeadArchive
	if pgClient != nil {
		archive = repository.NewLeadRepository(pgClient)
	}
	leadService := services.NewLeadService(
		verifier,
		sender,
		notification.NewComposer(cfg.Email.From, cfg.Email.To, cfg.Server.SiteName),
		archive,
		notifier,
	)

	// Health checks cover only the dependencies that are configured
	var checks []handlers.HealthCheck
	if redisClient != nil {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: redisconn.Healthcheck(redisClient)})
	}
	if pgClient != nil {
		checks = append(checks, handlers.HealthCheck{Name: "postgres", Check: pgClient.Ping})
	}

	// SECURITY: operational endpoints get a generous token bucket per IP
	generalRateLimiter := middleware.NewRateLimiter(10, 20) // 10 req/sec, burst of 20
	defer generalRateLimiter.Stop()

	gin.SetMode(cfg.Server.GinMode)
	router := setupRouter(cfg, routerDeps{
		leadHandler:    handlers.NewLeadHandler(leadService),
		healthHandler:  handlers.NewHealthHandler(checks...),
		leadLimiter:    leadLimiter,
		generalLimiter: generalRateLimiter,
	})

	logger.Info("Lead pipeline ready",
		zap.String("email_provider", sender.Provider()),
		zap.String("rate_limit_store", leadLimiter.StoreName()),
		zap.Bool("rate_limit_enabled", leadLimiter.Enabled()),
		zap.Int("rate_limit_max", leadLimiter.Limit()),
		zap.Bool("archive_enabled", archive != nil),
		zap.Bool("trigger_enabled", notifier.Enabled()),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // SECURITY: 1 MB max header size
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := notifier.Wait(ctx); err != nil {
		logger.Warn("Pending trigger calls abandoned", zap.Error(err))
	}

	logger.Info("Server exited")
}
