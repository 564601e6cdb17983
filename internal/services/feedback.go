package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

// FeedbackResult carries the generated advice plus whether it came from
// the deterministic fallback instead of the generative service.
type FeedbackResult struct {
	Feedback models.Feedback
	Degraded bool
}

// FeedbackService turns the earlier stage outputs into coaching advice.
// It never returns an error to the orchestrator: every failure mode
// resolves to the deterministic fallback.
type FeedbackService interface {
	Generate(ctx context.Context, jobDescription, jobTitle string, entities []models.Entity, score *models.CompatibilityScore) *FeedbackResult
	Fallback(score *models.CompatibilityScore) *FeedbackResult
}

type feedbackService struct {
	generator      Generator
	breaker        *CircuitBreaker
	promptBuilder  *PromptBuilder
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewFeedbackService(
	generator Generator,
	breaker *CircuitBreaker,
	maxRetries int,
	initialBackoff time.Duration,
	maxBackoff time.Duration,
	logger *zap.Logger,
) FeedbackService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if initialBackoff <= 0 {
		initialBackoff = 4 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}
	return &feedbackService{
		generator:      generator,
		breaker:        breaker,
		promptBuilder:  NewPromptBuilder(),
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		logger:         logger,
		sleep:          sleepCtx,
	}
}

func (s *feedbackService) Generate(ctx context.Context, jobDescription, jobTitle string, entities []models.Entity, score *models.CompatibilityScore) *FeedbackResult {
	prompt := s.promptBuilder.BuildFeedbackPrompt(jobDescription, jobTitle, entities, score)

	response, err := s.callWithRetry(ctx, prompt)
	if err != nil {
		s.logger.Warn("feedback generation failed, using fallback", zap.Error(err))
		return s.Fallback(score)
	}

	feedback, err := parseFeedbackResponse(response)
	if err != nil {
		s.logger.Warn("feedback response failed validation, using fallback",
			zap.Error(err),
			zap.Int("response_length", len(response)))
		return s.Fallback(score)
	}

	return &FeedbackResult{Feedback: *feedback, Degraded: false}
}

// callWithRetry guards each attempt with the circuit breaker and retries
// transient failures with exponential backoff. Non-retryable failures and
// an open circuit stop immediately.
func (s *feedbackService) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := s.initialBackoff

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("context cancelled: %w", err)
		}

		if err := s.breaker.Allow(); err != nil {
			return "", err
		}

		response, err := s.generator.GenerateText(ctx, prompt, 0.3)
		if err == nil {
			s.breaker.RecordSuccess()
			return response, nil
		}

		s.breaker.RecordFailure()
		lastErr = err

		if !IsRetryable(err) {
			return "", fmt.Errorf("non-retryable failure: %w", err)
		}

		if attempt < s.maxRetries {
			s.logger.Warn("feedback attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			if err := s.sleep(ctx, backoff); err != nil {
				return "", fmt.Errorf("context cancelled during backoff: %w", err)
			}

			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", s.maxRetries, lastErr)
}

// Fallback returns the deterministic generic feedback. It is a function of
// the score only, so byte-identical input produces byte-identical output.
func (s *feedbackService) Fallback(score *models.CompatibilityScore) *FeedbackResult {
	feedback := models.Feedback{
		OverallAssessment: "Automated coaching is temporarily unavailable. The compatibility score and keyword analysis below were computed normally; the suggestions here are general-purpose.",
		Strengths: []string{
			"Your resume was successfully parsed and scored against the job description.",
		},
		PriorityImprovements: []string{
			"Incorporate the missing keywords from the job description where they truthfully apply to your experience.",
		},
		Recommendations: []models.FeedbackItem{
			{
				Category:   models.CategoryKeywords,
				Priority:   models.PriorityHigh,
				Suggestion: "Mirror the job posting's terminology for skills you genuinely have; automated screens match on exact terms.",
			},
			{
				Category:   models.CategoryExperience,
				Priority:   models.PriorityMedium,
				Suggestion: "Lead each role with a quantified achievement (scale, performance, revenue) rather than a duty description.",
			},
			{
				Category:   models.CategoryFormatting,
				Priority:   models.PriorityLow,
				Suggestion: "Keep the resume to one or two pages with a dedicated skills section near the top.",
			},
		},
	}

	if len(score.MissingKeywords) > 0 {
		feedback.Recommendations = append([]models.FeedbackItem{{
			Category:   models.CategoryKeywords,
			Priority:   models.PriorityHigh,
			Suggestion: fmt.Sprintf("Address the most important missing keywords first: %s.", strings.Join(topN(score.MissingKeywords, 5), ", ")),
		}}, feedback.Recommendations...)
	}

	return &FeedbackResult{Feedback: feedback, Degraded: true}
}

// parseFeedbackResponse extracts the first JSON object from a possibly
// prose-wrapped response and validates it against the expected schema.
func parseFeedbackResponse(response string) (*models.Feedback, error) {
	jsonStr := extractJSON(response)

	var feedback models.Feedback
	if err := json.Unmarshal([]byte(jsonStr), &feedback); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	if strings.TrimSpace(feedback.OverallAssessment) == "" {
		return nil, fmt.Errorf("missing required field: overall_assessment")
	}
	if len(feedback.Recommendations) == 0 {
		return nil, fmt.Errorf("missing required field: recommendations")
	}

	valid := feedback.Recommendations[:0]
	for _, item := range feedback.Recommendations {
		if strings.TrimSpace(item.Suggestion) == "" {
			continue
		}
		item.Category = normalizeCategory(item.Category)
		item.Priority = normalizePriority(item.Priority)
		valid = append(valid, item)
	}
	feedback.Recommendations = valid

	if len(feedback.Recommendations) == 0 {
		return nil, fmt.Errorf("no usable recommendations after validation")
	}

	// Priority first, generation order within the same priority.
	sort.SliceStable(feedback.Recommendations, func(i, j int) bool {
		return feedback.Recommendations[i].Priority.Rank() < feedback.Recommendations[j].Priority.Rank()
	})

	return &feedback, nil
}

// extractJSON pulls the first JSON object out of text that may contain
// markdown fences or surrounding prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

func normalizeCategory(c models.FeedbackCategory) models.FeedbackCategory {
	switch models.FeedbackCategory(strings.ToLower(string(c))) {
	case models.CategorySkills, models.CategoryExperience, models.CategoryKeywords, models.CategoryFormatting:
		return models.FeedbackCategory(strings.ToLower(string(c)))
	default:
		return models.CategoryGeneral
	}
}

func normalizePriority(p models.FeedbackPriority) models.FeedbackPriority {
	switch models.FeedbackPriority(strings.ToLower(string(p))) {
	case models.PriorityHigh, models.PriorityLow:
		return models.FeedbackPriority(strings.ToLower(string(p)))
	default:
		return models.PriorityMedium
	}
}

func topN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
