// Package trigger notifies an external automation endpoint when a lead has
// been accepted. Calls are fire-and-forget and never affect the response.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/httpclient"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/metrics"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Event is the JSON body posted to the trigger URL
type Event struct {
	Type      string    `json:"type"`
	RecordID  string    `json:"recordId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier posts events to a single URL in the background
type Notifier struct {
	url        string
	httpClient httpclient.Client
	timeout    time.Duration
	wg         sync.WaitGroup
}

// New returns a notifier for url. An empty url yields a notifier whose
// CallAsync is a no-op.
func New(url string, httpClient httpclient.Client) *Notifier {
	return &Notifier{url: url, httpClient: httpClient, timeout: defaultTimeout}
}

// Enabled reports whether a trigger URL is configured
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// CallAsync posts ev in a new goroutine. Failures are logged only.
func (n *Notifier) CallAsync(ev Event) {
	if !n.Enabled() {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.call(ev)
	}()
}

// Wait blocks until in-flight calls finish or ctx is done
func (n *Notifier) Wait(ctx context.Context) error {
	if n == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) call(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	fields := []zap.Field{zap.String("event", ev.Type), zap.String("record_id", ev.RecordID)}

	body, err := json.Marshal(ev)
	if err != nil {
		metrics.TriggerCalls.WithLabelValues("error").Inc()
		logger.Error("Failed to encode trigger event", append(fields, zap.Error(err))...)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		metrics.TriggerCalls.WithLabelValues("error").Inc()
		logger.Error("Failed to build trigger request", append(fields, zap.Error(err))...)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		metrics.TriggerCalls.WithLabelValues("error").Inc()
		logger.Error("Failed to call trigger URL", append(fields, zap.Error(err))...)
		return
	}
	defer resp.Body.Close()

	fields = append(fields, zap.Int("status_code", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.TriggerCalls.WithLabelValues("success").Inc()
		logger.Info("Trigger URL called successfully", fields...)
		return
	}

	metrics.TriggerCalls.WithLabelValues("non_2xx").Inc()
	logger.Warn("Trigger URL returned non-success status", fields...)
}
