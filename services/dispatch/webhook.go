package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookChannel delivers notifications through an external HTTP
// provider (SMS gateway, voice-call gateway, emergency-service API).
// The provider contract is a JSON POST returning {status, provider_ref};
// 4xx responses are permanent, 5xx and transport errors are transient.
type WebhookChannel struct {
	ChannelName string
	URL         string
	APIKey      string
	Client      *http.Client
}

type webhookRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type webhookResponse struct {
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref"`
}

func (w *WebhookChannel) Name() string { return w.ChannelName }

func (w *WebhookChannel) httpClient() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (w *WebhookChannel) Send(ctx context.Context, target string, payload Payload) (string, error) {
	if w.URL == "" {
		return "", Permanent(fmt.Errorf("%s: no provider URL configured", w.ChannelName))
	}

	body, err := json.Marshal(webhookRequest{
		To:    target,
		Title: payload.Title,
		Body:  payload.Body,
		Data:  payload.Data,
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("%s: encoding request: %w", w.ChannelName, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return "", Permanent(fmt.Errorf("%s: building request: %w", w.ChannelName, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.APIKey)
	}

	resp, err := w.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: HTTP request failed: %w", w.ChannelName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", Permanent(fmt.Errorf("%s: provider rejected request with status %d", w.ChannelName, resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%s: provider returned status %d", w.ChannelName, resp.StatusCode)
	}

	var parsed webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%s: decoding response failed: %w", w.ChannelName, err)
	}
	return parsed.ProviderRef, nil
}
