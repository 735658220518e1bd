package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
)

// WebhookNotifier implements notification.Notifier by posting event
// batches as JSON to a configured webhook endpoint.
type WebhookNotifier struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(apiKey, baseURL string) *WebhookNotifier {
	return &WebhookNotifier{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithHTTPClient sets a custom HTTP client.
func (n *WebhookNotifier) WithHTTPClient(client *http.Client) *WebhookNotifier {
	n.HTTPClient = client
	return n
}

// webhookEvent is the wire format of one notification.
type webhookEvent struct {
	Recipient    string         `json:"recipient"`
	TournamentID string         `json:"tournament_id"`
	Type         string         `json:"type"`
	Data         map[string]any `json:"data,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

type webhookBatch struct {
	Batch []webhookEvent `json:"batch"`
}

// Publish sends events to the webhook endpoint as one batch.
func (n *WebhookNotifier) Publish(ctx context.Context, events []notification.Event) error {
	if len(events) == 0 {
		return nil
	}

	wireEvents := make([]webhookEvent, 0, len(events))
	for _, event := range events {
		wireEvents = append(wireEvents, webhookEvent{
			Recipient:    string(event.Recipient),
			TournamentID: string(event.TournamentID),
			Type:         string(event.Type),
			Data:         event.Data,
			OccurredAt:   event.OccurredAt,
		})
	}

	body, err := json.Marshal(webhookBatch{Batch: wireEvents})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if n.APIKey != "" {
		req.SetBasicAuth(n.APIKey, "")
	}

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return notification.ErrDispatchFailed
	}

	return nil
}
