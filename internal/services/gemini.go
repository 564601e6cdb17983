package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generator produces text from a prompt via the hosted generative service.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
}

type apiCallError struct {
	err       error
	retryable bool
}

func (e *apiCallError) Error() string { return e.err.Error() }
func (e *apiCallError) Unwrap() error { return e.err }

// IsRetryable reports whether a generation failure is transient (timeout,
// 5xx-class). Malformed requests, auth and quota failures are not worth
// retrying.
func IsRetryable(err error) bool {
	var ce *apiCallError
	if errors.As(err, &ce) {
		return ce.retryable
	}
	return false
}

type geminiService struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &geminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// GenerateText implements Generator.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warn("gemini call failed", zap.Error(err))
		return "", classifyCallError(err)
	}

	if resp == nil {
		return "", &apiCallError{err: errors.New("no response generated"), retryable: true}
	}

	text := resp.Text()
	if text == "" {
		// Empty candidates happen on safety blocks and truncation; a
		// fresh attempt sometimes produces usable output.
		return "", &apiCallError{err: errors.New("no text content in response"), retryable: true}
	}

	return text, nil
}

func classifyCallError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &apiCallError{err: err, retryable: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &apiCallError{err: err, retryable: true}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		// 5xx is transient. 4xx (bad request, auth, quota/billing) will
		// fail the same way on every attempt.
		return &apiCallError{err: err, retryable: apiErr.Code >= 500}
	}

	// Transport-level failures (connection resets, client timeouts).
	return &apiCallError{err: err, retryable: true}
}
