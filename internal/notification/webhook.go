package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"kdj-monitor/internal/model"
)

// WebhookNotifier POSTs signal events to an HTTP webhook endpoint using the
// DingTalk text-message payload shape, which generic receivers also accept.
type WebhookNotifier struct {
	url    string
	token  string // optional bearer token
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
// url: the HTTP endpoint to POST events to.
// token: optional bearer token sent in the Authorization header.
func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, event model.SignalEvent) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": FormatMessage(event),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] pushed signal for %s (%v)", event.InstID, event.Conditions)
	return nil
}
