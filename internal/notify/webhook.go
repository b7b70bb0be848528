package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 15 * time.Second

// WebhookNotifier posts outcome events as JSON to a fixed endpoint, for
// bridges that relay results back into chat.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier returns a notifier posting to url. A non-positive
// timeout falls back to a sane default.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type webhookEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Result    *Result   `json:"result,omitempty"`
	Failure   *Failure  `json:"failure,omitempty"`
}

// NotifyResult posts a "generation.finished" event.
func (n *WebhookNotifier) NotifyResult(ctx context.Context, r Result) error {
	return n.post(ctx, webhookEvent{Type: "generation.finished", CreatedAt: time.Now().UTC(), Result: &r})
}

// NotifyFailure posts a "generation.failed" event.
func (n *WebhookNotifier) NotifyFailure(ctx context.Context, f Failure) error {
	return n.post(ctx, webhookEvent{Type: "generation.failed", CreatedAt: time.Now().UTC(), Failure: &f})
}

func (n *WebhookNotifier) post(ctx context.Context, ev webhookEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post %s: %w", ev.Type, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: post %s: unexpected status %d", ev.Type, resp.StatusCode)
	}
	return nil
}
