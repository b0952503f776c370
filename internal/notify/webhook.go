// Package notify delivers alert notifications to an outbound webhook.
//
// DESIGN: Delivery runs off the processing loop, so a slow endpoint can never
// stall log consumption. Each send has a bounded retry budget with exponential
// backoff: network errors and 5xx responses are retried, anything else from
// the endpoint is treated as permanent. Exhaustion is the caller's to log;
// cooldown state was already spent at decision time.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/poolwatch/poolwatch/internal/alert"
)

// Notifier delivers one alert. Implementations must respect ctx cancellation
// so in-flight retries are abandoned on shutdown.
type Notifier interface {
	Send(ctx context.Context, a alert.Alert) error
}

// Config holds webhook delivery settings.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
}

// Webhook posts alert payloads to a fixed HTTP endpoint.
type Webhook struct {
	url      string
	client   *http.Client
	attempts int
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg Config) *Webhook {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	return &Webhook{
		url:      cfg.URL,
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
	}
}

// Send posts the rendered payload, retrying transient failures with backoff.
func (w *Webhook) Send(ctx context.Context, a alert.Alert) error {
	payload, err := Payload(a)
	if err != nil {
		return fmt.Errorf("render payload: %w", err)
	}

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(w.attempts)),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.LastErrorOnly(true),
	)

	err = r.Do(func() error {
		return w.post(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	return nil
}

func (w *Webhook) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err // network error: retryable
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	default:
		// 3xx/4xx won't get better on retry.
		return retry.Unrecoverable(fmt.Errorf("endpoint returned %d", resp.StatusCode))
	}
}
