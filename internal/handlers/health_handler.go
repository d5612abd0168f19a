package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one optional dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthcheck always answers 200: every dependency is optional at runtime,
// so a failing probe degrades the service rather than taking it down.
func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, hc := range h.checks {
		wg.Add(1)
		go func(hc HealthCheck) {
			defer wg.Done()
			status := "ok"
			if err := hc.Check(ctx); err != nil {
				status = "fail"
				logger.Warn("Health check failed", zap.String("check", hc.Name), zap.Error(err))
			}
			mu.Lock()
			results[hc.Name] = status
			mu.Unlock()
		}(hc)
	}
	wg.Wait()

	overall := "ok"
	for _, status := range results {
		if status != "ok" {
			overall = "degraded"
			break
		}
	}

	body := gin.H{"status": overall}
	if len(results) > 0 {
		body["checks"] = results
	}
	c.JSON(http.StatusOK, body)
}
