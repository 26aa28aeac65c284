package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// RealtimeBroker mints ephemeral client secrets for browser realtime
// sessions, so the server API key never reaches the client.
type RealtimeBroker struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// RealtimeConfig holds the realtime session broker settings.
type RealtimeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewRealtimeBroker creates a realtime client-secret broker.
func NewRealtimeBroker(cfg *RealtimeConfig) *RealtimeBroker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &RealtimeBroker{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
	}
}

type clientSecretRequest struct {
	Session realtimeSession `json:"session"`
}

type realtimeSession struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

type clientSecretResponse struct {
	Value string `json:"value"`
}

// ClientSecret requests a short-lived secret for one realtime session.
func (b *RealtimeBroker) ClientSecret(ctx context.Context) (string, error) {
	body, err := json.Marshal(clientSecretRequest{
		Session: realtimeSession{Type: "realtime", Model: b.model},
	})
	if err != nil {
		return "", fmt.Errorf("marshal client secret request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/v1/realtime/client_secrets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build client secret request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request client secret: %w", domain.ErrCompletionProviderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("realtime API error %d: %s: %w",
			resp.StatusCode, string(data), domain.ErrCompletionProviderError)
	}

	var parsed clientSecretResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode client secret response: %w", err)
	}
	if parsed.Value == "" {
		return "", fmt.Errorf("empty client secret: %w", domain.ErrCompletionProviderError)
	}
	return parsed.Value, nil
}
