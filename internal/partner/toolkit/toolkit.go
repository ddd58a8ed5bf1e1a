// Package toolkit bundles the shared behavior concrete lender adapters
// compose: authenticated JSON requests with bounded retry, webhook signature
// verification, and error normalization. Adapters hold a Toolkit instead of
// inheriting from a base type.
package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	commonErrors "financing-gateway/internal/common/errors"
	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/common/metrics"
	"financing-gateway/internal/common/observability"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
)

// CallObserver receives the outcome and latency of every partner call
// attempt. Satisfied by *observability.Observability.
type CallObserver interface {
	RecordPartnerCall(ctx context.Context, partner, status string)
	RecordCallDuration(ctx context.Context, partner string, duration time.Duration)
}

var _ CallObserver = (*observability.Observability)(nil)

// Options configures a per-partner Toolkit.
type Options struct {
	PartnerID   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	Logger      logger.Logger
	Observer    CallObserver
}

// Toolkit performs outbound partner calls for exactly one partner.
type Toolkit struct {
	partnerID   string
	client      *http.Client
	log         logger.Logger
	maxAttempts int
	backoffBase time.Duration
	observer    CallObserver
}

// New builds a Toolkit, filling unset options with defaults.
func New(opts Options) *Toolkit {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	return &Toolkit{
		partnerID:   opts.PartnerID,
		client:      &http.Client{Timeout: opts.Timeout},
		log:         opts.Logger,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		observer:    opts.Observer,
	}
}

// PartnerID returns the partner this toolkit calls.
func (t *Toolkit) PartnerID() string { return t.partnerID }

// Request performs an authenticated JSON call with bounded retry. Retryable
// failures (5xx, network, timeout) back off exponentially between attempts;
// 4xx responses fail fast. The last error is returned after the attempt
// budget is exhausted.
func (t *Toolkit) Request(ctx context.Context, method, url string, headers map[string]string, body interface{}) ([]byte, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, commonErrors.NewMalformedResponseError(t.partnerID, err)
		}
	}

	var lastErr *commonErrors.PartnerError
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		metrics.PartnerRequests.WithLabelValues(t.partnerID, method).Inc()

		respBody, perr := t.doOnce(ctx, method, url, headers, encoded)
		if perr == nil {
			return respBody, nil
		}

		lastErr = perr
		metrics.PartnerRequestFailures.WithLabelValues(t.partnerID, method, string(perr.Code)).Inc()

		if !perr.Retryable {
			t.log.Warn("partner request failed, not retrying", map[string]interface{}{
				"partner": t.partnerID,
				"url":     url,
				"code":    string(perr.Code),
				"status":  perr.Status,
			})
			return nil, perr
		}

		if attempt < t.maxAttempts {
			wait := t.backoff(attempt)
			t.log.Warn("partner request failed, backing off", map[string]interface{}{
				"partner":      t.partnerID,
				"url":          url,
				"attempt":      attempt,
				"max_attempts": t.maxAttempts,
				"backoff":      wait.String(),
				"error":        perr.Message,
			})
			metrics.PartnerRetries.WithLabelValues(t.partnerID).Inc()

			if err := sleepCtx(ctx, wait); err != nil {
				return nil, commonErrors.Normalize(t.partnerID, err)
			}
		}
	}

	t.log.Error("partner request exhausted retries", map[string]interface{}{
		"partner":  t.partnerID,
		"url":      url,
		"attempts": t.maxAttempts,
		"error":    lastErr.Message,
	})
	return nil, lastErr
}

// RequestJSON performs Request and decodes the response body into out.
func (t *Toolkit) RequestJSON(ctx context.Context, method, url string, headers map[string]string, body, out interface{}) error {
	respBody, err := t.Request(ctx, method, url, headers, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return commonErrors.NewMalformedResponseError(t.partnerID, err)
	}
	return nil
}

func (t *Toolkit) doOnce(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, *commonErrors.PartnerError) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, commonErrors.Normalize(t.partnerID, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.observe(ctx, "error", time.Since(start))
		return nil, commonErrors.Normalize(t.partnerID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.observe(ctx, "error", time.Since(start))
		return nil, commonErrors.Normalize(t.partnerID, err)
	}

	t.log.Debug("partner response", map[string]interface{}{
		"partner":  t.partnerID,
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if perr := commonErrors.FromHTTPStatus(t.partnerID, resp.StatusCode, truncate(string(respBody), 512)); perr != nil {
		t.observe(ctx, "error", time.Since(start))
		return nil, perr
	}
	t.observe(ctx, "success", time.Since(start))
	return respBody, nil
}

// observe records one call attempt with the configured observer, if any.
func (t *Toolkit) observe(ctx context.Context, status string, elapsed time.Duration) {
	if t.observer == nil {
		return
	}
	t.observer.RecordPartnerCall(ctx, t.partnerID, status)
	t.observer.RecordCallDuration(ctx, t.partnerID, elapsed)
}

// backoff returns 2^attempt units of the base interval.
func (t *Toolkit) backoff(attempt int) time.Duration {
	return t.backoffBase * time.Duration(1<<uint(attempt))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (" + strconv.Itoa(len(s)) + " bytes)"
}
