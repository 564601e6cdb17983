package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder generates fixed-size vectors from text via the local embedding
// sidecar. The model is loaded once by the sidecar; a health-check failure
// at startup is fatal for the whole process, so there is no per-request
// retry here.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Healthy(ctx context.Context) error
}

type embedClient struct {
	endpoint string
	http     *http.Client
}

func NewEmbedClient(endpoint string, timeout time.Duration) Embedder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &embedClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *embedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	payload := map[string]any{"inputs": inputs}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed server returned status %s: %s", resp.Status, string(msg))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("embed server returned %d vectors for %d inputs", len(vectors), len(inputs))
	}

	return vectors, nil
}

func (c *embedClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embed health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embed server unhealthy: %s", resp.Status)
	}

	return nil
}
