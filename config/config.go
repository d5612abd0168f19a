package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/pnp-remodeling/pnp-remodeling-api/pkg/errors"
)

// Rate limit store selectors
const (
	RateLimitStoreAuto     = "auto"
	RateLimitStoreRedis    = "redis"
	RateLimitStoreMemory   = "memory"
	RateLimitStoreDisabled = "disabled"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Email         EmailConfig
	Captcha       CaptchaConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	EventTriggers EventTriggersConfig
	Metrics       MetricsConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	SiteName       string
	AllowedOrigins []string
	TrustedProxies []string
}

type EmailConfig struct {
	Provider             string
	ResendAPIKey         string
	PostmarkServerToken  string
	PostmarkAccountToken string
	From                 string
	To                   string
	Timeout              time.Duration
}

type CaptchaConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

type RateLimitConfig struct {
	Store    string
	Max      int
	Window   time.Duration
	Prefix   string
	FailOpen bool
}

type RedisConfig struct {
	URL string
}

type DatabaseConfig struct {
	URL        string
	CACertPath string
	MaxConns   int32
	MinConns   int32
}

type EventTriggersConfig struct {
	LeadCreatedTriggerURL string
}

type MetricsConfig struct {
	AuthToken string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	AlloyEndpoint     string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
	TraceSampleRatio  float64
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := fromViper(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("SITE_NAME", "pnp-remodeling.com")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://pnp-remodeling.com,https://www.pnp-remodeling.com")
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("EMAIL_PROVIDER", "resend")
	v.SetDefault("EMAIL_FROM", "PNP Remodeling <no-reply@pnp-remodeling.com>")
	v.SetDefault("EMAIL_TIMEOUT_SECONDS", 10)

	v.SetDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("CAPTCHA_TIMEOUT_SECONDS", 10)

	v.SetDefault("RATE_LIMIT_STORE", RateLimitStoreAuto)
	v.SetDefault("RATE_LIMIT_MAX", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 600) // 10 minutes
	v.SetDefault("RATE_LIMIT_PREFIX", "new-lead")
	v.SetDefault("RATE_LIMIT_FAIL_OPEN", true)

	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("DATABASE_MIN_CONNS", 1)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")

	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "") // OTLP over HTTP, empty disables export
	v.SetDefault("O11Y_BE_SERVICE_NAME", "pnp-remodeling-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "pnp-remodeling")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_TRACE_SAMPLE_RATIO", 1.0)
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "pnp-remodeling-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			SiteName:       v.GetString("SITE_NAME"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Email: EmailConfig{
			Provider:             strings.ToLower(strings.TrimSpace(v.GetString("EMAIL_PROVIDER"))),
			ResendAPIKey:         v.GetString("RESEND_API_KEY"),
			PostmarkServerToken:  v.GetString("POSTMARK_SERVER_TOKEN"),
			PostmarkAccountToken: v.GetString("POSTMARK_ACCOUNT_TOKEN"),
			From:                 v.GetString("EMAIL_FROM"),
			To:                   strings.TrimSpace(v.GetString("EMAIL_TO")),
			Timeout:              time.Duration(v.GetInt("EMAIL_TIMEOUT_SECONDS")) * time.Second,
		},
		Captcha: CaptchaConfig{
			SecretKey: v.GetString("TURNSTILE_SECRET_KEY"),
			VerifyURL: v.GetString("TURNSTILE_VERIFY_URL"),
			Timeout:   time.Duration(v.GetInt("CAPTCHA_TIMEOUT_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Store:    strings.ToLower(strings.TrimSpace(v.GetString("RATE_LIMIT_STORE"))),
			Max:      v.GetInt("RATE_LIMIT_MAX"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
			Prefix:   v.GetString("RATE_LIMIT_PREFIX"),
			FailOpen: v.GetBool("RATE_LIMIT_FAIL_OPEN"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			CACertPath: v.GetString("DATABASE_CA_CERT"),
			MaxConns:   v.GetInt32("DATABASE_MAX_CONNS"),
			MinConns:   v.GetInt32("DATABASE_MIN_CONNS"),
		},
		EventTriggers: EventTriggersConfig{
			LeadCreatedTriggerURL: v.GetString("LEAD_CREATED_TRIGGER_URL"),
		},
		Metrics: MetricsConfig{
			AuthToken: v.GetString("METRICS_AUTH_TOKEN"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			AlloyEndpoint:     v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
			TraceSampleRatio:  v.GetFloat64("O11Y_TRACE_SAMPLE_RATIO"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}
}

// splitList parses a comma-separated value, dropping empty entries
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Server configuration
	if c.Server.Port == "" {
		return apperrors.ConfigurationError("PORT", "is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return apperrors.ConfigurationError("ALLOWED_CORS_ORIGINS", "is required")
	}

	// Human verification fails closed, so the secret is mandatory
	if c.Captcha.SecretKey == "" {
		return apperrors.ConfigurationError("TURNSTILE_SECRET_KEY", "is required")
	}

	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return apperrors.ConfigurationError("O11Y_PROFILING_ENDPOINT", "is required when profiling is enabled")
	}

	return nil
}

func (c *Config) validateEmail() error {
	if c.Email.To == "" {
		return apperrors.ConfigurationError("EMAIL_TO", "is required")
	}
	if _, err := mail.ParseAddress(c.Email.To); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ConfigurationError("EMAIL_TO", "is not a valid address"), err)
	}
	if _, err := mail.ParseAddress(c.Email.From); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ConfigurationError("EMAIL_FROM", "is not a valid address"), err)
	}
	if c.Email.Timeout <= 0 {
		return apperrors.ConfigurationError("EMAIL_TIMEOUT_SECONDS", "must be positive")
	}

	switch c.Email.Provider {
	case "", "resend":
		if c.Email.ResendAPIKey == "" {
			return apperrors.ConfigurationError("RESEND_API_KEY", "is required for the resend email provider")
		}
	case "postmark":
		if c.Email.PostmarkServerToken == "" {
			return apperrors.ConfigurationError("POSTMARK_SERVER_TOKEN", "is required for the postmark email provider")
		}
	case "log":
		if !c.IsDevelopment() {
			return apperrors.ConfigurationError("EMAIL_PROVIDER=log", "is only allowed in development")
		}
	default:
		return apperrors.ConfigurationError("EMAIL_PROVIDER", fmt.Sprintf("has unknown value %q", c.Email.Provider))
	}

	return nil
}

func (c *Config) validateRateLimit() error {
	switch c.RateLimit.Store {
	case RateLimitStoreAuto, RateLimitStoreMemory, RateLimitStoreDisabled:
	case RateLimitStoreRedis:
		if c.Redis.URL == "" {
			return apperrors.ConfigurationError("REDIS_URL", "is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return apperrors.ConfigurationError("RATE_LIMIT_STORE", fmt.Sprintf("has unknown value %q", c.RateLimit.Store))
	}

	if c.RateLimit.Store == RateLimitStoreDisabled {
		return nil
	}
	if c.RateLimit.Max <= 0 {
		return apperrors.ConfigurationError("RATE_LIMIT_MAX", "must be positive")
	}
	if c.RateLimit.Window < time.Second {
		return apperrors.ConfigurationError("RATE_LIMIT_WINDOW_SECONDS", "must be at least 1")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
