package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/cache"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/models"
	"github.com/pnp-remodeling/pnp-remodeling-api/internal/ratelimit"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(logger.Config{Level: "error", Environment: "development"}); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m,
		// counter caches own a janitor goroutine that lives until the cache is collected
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func postLead(router http.Handler, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/new-lead", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireJSON(t *testing.T) {
	router := gin.New()
	router.POST("/new-lead", RequireJSON(), okHandler)

	tests := []struct {
		contentType string
		want        int
	}{
		{"application/json", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"Application/JSON", http.StatusOK},
		{"text/plain", http.StatusUnsupportedMediaType},
		{"application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/new-lead", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnsupportedMediaType {
				assert.Equal(t, models.CodeInvalidContentType, decodeError(t, w).Code)
			}
		})
	}
}

func newMemoryLimiter(t *testing.T, limit int) *ratelimit.FixedWindow {
	t.Helper()
	l, err := ratelimit.New(ratelimit.Config{Limit: limit, Window: 600 * time.Second, Prefix: "new-lead"},
		ratelimit.NewMemoryStore(cache.NewCounterCache("test")))
	require.NoError(t, err)
	return l
}

func TestLeadRateLimit_SixthRequestRejected(t *testing.T) {
	router := gin.New()
	router.Use(ClientIPMiddleware())
	router.POST("/new-lead", LeadRateLimitMiddleware(newMemoryLimiter(t, 5), true), okHandler)

	for i := 1; i <= 5; i++ {
		w := postLead(router, "203.0.113.7")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "5", w.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, itoa(5-i), w.Header().Get(HeaderRateLimitRemaining))
	}

	w := postLead(router, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5", w.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", w.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, w.Header().Get(HeaderRateLimitReset))
	assert.Equal(t, models.CodeRateLimited, decodeError(t, w).Code)

	reset, err := strconv.ParseInt(w.Header().Get(HeaderRateLimitReset), 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(600*time.Second).Unix(), reset, 5)

	other := postLead(router, "198.51.100.1")
	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, "4", other.Header().Get(HeaderRateLimitRemaining))
}

func TestLeadRateLimit_Bypassed(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Config{Limit: 1, Window: time.Minute}, nil)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/new-lead", LeadRateLimitMiddleware(limiter, true), okHandler)

	for i := 0; i < 3; i++ {
		w := postLead(router, "203.0.113.7")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(HeaderRateLimitLimit))
	}
}

type failingStore struct{}

func (failingStore) Name() string { return "failing" }

func (failingStore) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func TestLeadRateLimit_StoreFailure(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Config{Limit: 5, Window: time.Minute}, failingStore{})
	require.NoError(t, err)

	t.Run("fail open", func(t *testing.T) {
		router := gin.New()
		router.POST("/new-lead", LeadRateLimitMiddleware(limiter, true), okHandler)

		w := postLead(router, "203.0.113.7")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("fail closed", func(t *testing.T) {
		router := gin.New()
		router.POST("/new-lead", LeadRateLimitMiddleware(limiter, false), okHandler)

		w := postLead(router, "203.0.113.7")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, models.CodeInternalError, decodeError(t, w).Code)
	})
}

func TestRateLimiter_BurstAndStop(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 2)
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/healthcheck", okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_PruneDropsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 1)
	rl.getVisitor("a")
	rl.prune()

	assert.Zero(t, rl.visitors.Len())

	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_VisitorTableIsBounded(t *testing.T) {
	rl := newRateLimiter(rate.Limit(1), 1, 2)
	defer rl.Stop()

	first := rl.getVisitor("203.0.113.1")
	rl.getVisitor("203.0.113.2")
	rl.getVisitor("203.0.113.3")

	assert.Equal(t, 2, rl.visitors.Len())
	assert.False(t, rl.visitors.Contains("203.0.113.1"))
	assert.NotSame(t, first, rl.getVisitor("203.0.113.1"))
}

func TestBearerTokenMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", BearerTokenMiddleware("s3cret"), okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer s3cret", http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing scheme", "s3cret", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	open := gin.New()
	open.GET("/metrics", BearerTokenMiddleware(""), okHandler)
	w := httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimitMiddleware(16))
	router.POST("/new-lead", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/new-lead", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/new-lead", strings.NewReader(strings.Repeat("x", 100))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestClientIPMiddleware(t *testing.T) {
	var got string
	router := gin.New()
	router.Use(ClientIPMiddleware())
	router.GET("/", func(c *gin.Context) {
		got = GetClientIP(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	router.ServeHTTP(w, req)
	assert.Equal(t, "203.0.113.7", got)
}

func TestObservabilityMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ObservabilityMiddleware())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(i int) string { return strconv.Itoa(i) }
