package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NERToken is one labeled token from the sequence-labeling model, in the
// inference server's response shape.
type NERToken struct {
	Label string  `json:"entity_group"`
	Word  string  `json:"word"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// NERClient talks to the local NER inference sidecar. The model itself is
// loaded by the sidecar at startup and is read-only from here.
type NERClient interface {
	Predict(ctx context.Context, text string) ([]NERToken, error)
	Healthy(ctx context.Context) error
}

type nerClient struct {
	endpoint string
	http     *http.Client
}

func NewNERClient(endpoint string, timeout time.Duration) NERClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &nerClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *nerClient) Predict(ctx context.Context, text string) ([]NERToken, error) {
	payload := map[string]any{"text": text}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/ner", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner server returned status %s", resp.Status)
	}

	var tokens []NERToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}

	return tokens, nil
}

func (c *nerClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ner health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ner server unhealthy: %s", resp.Status)
	}

	return nil
}
