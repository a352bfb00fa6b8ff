package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

// Webhook posts each event as JSON to a fixed URL. There is no retry.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: url, client: client}
}

type webhookPayload struct {
	SessionID string    `json:"sessionId"`
	Event     EventType `json:"event"`
	order.Order
}

func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(webhookPayload{SessionID: ev.SessionID, Event: ev.Type, Order: ev.Order})
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ev.CorrelationID != "" {
		req.Header.Set("X-Correlation-Id", ev.CorrelationID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
