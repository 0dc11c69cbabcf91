package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// WebhookEvent is the payload sent to webhook URLs after the edit stack moves.
type WebhookEvent struct {
	Event      string `json:"event"`
	Index      int    `json:"index"`
	Edits      int    `json:"edits"`
	Annotation string `json:"annotation,omitempty"`
	Changed    int    `json:"changed"`
	Timestamp  string `json:"timestamp"`
}

// WebhookConfig holds the list of configured webhook URLs.
type WebhookConfig struct {
	URLs []string
}

// WebhookNotifier sends HTTP POST notifications to configured webhook URLs.
type WebhookNotifier struct {
	config *WebhookConfig
	client *http.Client
	logger *slog.Logger
	retry  *RetryConfig
	wg     sync.WaitGroup
}

// NewWebhookNotifier creates a webhook notifier. Returns nil if no URLs are configured.
func NewWebhookNotifier(cfg *WebhookConfig, logger *slog.Logger) *WebhookNotifier {
	if cfg == nil || len(cfg.URLs) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		retry:  DefaultRetryConfig(),
	}
}

// Notify sends event to all configured URLs in the background.
func (wn *WebhookNotifier) Notify(event WebhookEvent) {
	if wn == nil {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	wn.wg.Add(1)
	go func() {
		defer wn.wg.Done()
		wn.send(context.Background(), &event)
	}()
}

// Wait blocks until every pending delivery has finished.
func (wn *WebhookNotifier) Wait() {
	if wn == nil {
		return
	}
	wn.wg.Wait()
}

func (wn *WebhookNotifier) send(ctx context.Context, event *WebhookEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		wn.logger.Error("webhook: marshal event", "error", err)
		return
	}

	for _, url := range wn.config.URLs {
		err := wn.retry.retry(ctx, "webhook "+event.Event, func() error {
			return wn.post(ctx, url, data)
		})
		if err != nil {
			webhookDeliveries.WithLabelValues("failed").Inc()
			wn.logger.Warn("webhook: delivery failed", "url", url, "error", err)
		} else {
			webhookDeliveries.WithLabelValues("delivered").Inc()
			wn.logger.Debug("webhook: delivered", "url", url, "event", event.Event)
		}
	}
}

// post sends a single webhook POST.
func (wn *WebhookNotifier) post(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "geoedit-server/1.0")

	resp, err := wn.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{Status: resp.StatusCode}
	}
	return nil
}
