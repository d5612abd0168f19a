package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry holds every collector exposed on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets for outbound calls (captcha siteverify, email transport, Redis, Postgres)
	// ranging from a few milliseconds to the 10s client timeouts
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Business Metrics
	LeadSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pnp_lead_submissions_total",
			Help: "Total number of lead form submissions by outcome",
		},
		[]string{"status"},
	)

	// Rate limiting
	RateLimitDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pnp_rate_limit_decisions_total",
			Help: "Rate limit decisions on the lead endpoint",
		},
		[]string{"decision"}, // allowed, limited, bypassed, store_error
	)

	// External dependencies
	CaptchaVerifyDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pnp_captcha_verify_duration_seconds",
			Help:    "Human verification call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"status"},
	)

	EmailDispatchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pnp_email_dispatch_duration_seconds",
			Help:    "Email transport call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"provider", "status"},
	)

	DBOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	// Counter store cache (single-process mode)
	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	// Webhook triggers
	TriggerCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pnp_trigger_calls_total",
			Help: "Outbound event trigger calls by status",
		},
		[]string{"status"},
	)

	// Circuit breakers: 0 closed, 1 half-open, 2 open
	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pnp_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
