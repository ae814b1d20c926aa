package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"messaging/internal/models"
)

type WebhookSender struct {
	client  *http.Client
	url     string
	authKey string
}

func NewWebhookSender(url, authKey string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		authKey: authKey,
	}
}

// Send posts the event as JSON. A messageId in the response body becomes
// the delivery id; otherwise the event id is used.
func (w *WebhookSender) Send(ctx context.Context, n models.PendingNotification) (string, error) {
	event := NewEvent(n)
	bodyBytes, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode notification event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.authKey != "" {
		req.Header.Set("x-ins-auth-key", w.authKey)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("received status %d from webhook", resp.StatusCode)
	}
	var respData struct {
		MessageID string `json:"messageId"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read webhook response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &respData); err != nil {
			return "", fmt.Errorf("failed to parse webhook response: %w", err)
		}
	}
	if respData.MessageID == "" {
		return event.EventID, nil
	}
	return respData.MessageID, nil
}
