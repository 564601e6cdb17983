package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", errors.New("stub exhausted")
}

const validFeedbackJSON = `{
  "overall_assessment": "Solid backend profile with a container gap.",
  "strengths": ["Strong Go experience"],
  "priority_improvements": ["Add Kubernetes exposure"],
  "recommendations": [
    {"category": "skills", "priority": "low", "suggestion": "Mention Linux administration."},
    {"category": "keywords", "priority": "high", "suggestion": "Add Kubernetes to your skills section."},
    {"category": "experience", "priority": "medium", "suggestion": "Quantify your service's throughput."}
  ]
}`

func testScore() *models.CompatibilityScore {
	return &models.CompatibilityScore{
		Similarity:      72.5,
		MatchedKeywords: []string{"Go", "Docker"},
		MissingKeywords: []string{"Kubernetes", "Terraform"},
	}
}

func newTestFeedbackService(gen Generator, breaker *CircuitBreaker) *feedbackService {
	svc := NewFeedbackService(gen, breaker, 3, time.Millisecond, 4*time.Millisecond, zap.NewNop()).(*feedbackService)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func TestGenerateParsesProseWrappedJSON(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Sure! Here is the analysis you asked for:\n```json\n" + validFeedbackJSON + "\n```\nHope that helps.",
	}}
	svc := newTestFeedbackService(gen, NewCircuitBreaker(5, time.Minute))

	result := svc.Generate(context.Background(), "job description", "Backend Engineer", nil, testScore())

	if result.Degraded {
		t.Fatal("expected model-generated feedback, got fallback")
	}
	if result.Feedback.OverallAssessment != "Solid backend profile with a container gap." {
		t.Fatalf("unexpected assessment: %q", result.Feedback.OverallAssessment)
	}
	if len(result.Feedback.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(result.Feedback.Recommendations))
	}

	// Recommendations are reordered high, medium, low.
	priorities := []models.FeedbackPriority{
		result.Feedback.Recommendations[0].Priority,
		result.Feedback.Recommendations[1].Priority,
		result.Feedback.Recommendations[2].Priority,
	}
	want := []models.FeedbackPriority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	for i := range want {
		if priorities[i] != want[i] {
			t.Fatalf("expected priority order %v, got %v", want, priorities)
		}
	}
}

func TestGenerateFallsBackOnMalformedResponse(t *testing.T) {
	gen := &stubGenerator{responses: []string{"I am sorry, I cannot produce JSON today."}}
	svc := newTestFeedbackService(gen, NewCircuitBreaker(5, time.Minute))

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if !result.Degraded {
		t.Fatal("expected fallback for unparseable response")
	}
	if gen.calls != 1 {
		t.Fatalf("malformed content is not transient, expected 1 call, got %d", gen.calls)
	}
}

func TestGenerateFallsBackOnMissingRequiredFields(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"strengths": ["something"], "recommendations": []}`}}
	svc := newTestFeedbackService(gen, NewCircuitBreaker(5, time.Minute))

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if !result.Degraded {
		t.Fatal("expected fallback when required fields are missing")
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	transient := &apiCallError{err: errors.New("503 backend error"), retryable: true}
	gen := &stubGenerator{
		errs:      []error{transient, transient},
		responses: []string{"", "", validFeedbackJSON},
	}
	svc := newTestFeedbackService(gen, NewCircuitBreaker(5, time.Minute))

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if result.Degraded {
		t.Fatal("expected success on the third attempt")
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
}

func TestGenerateDoesNotRetryPermanentFailures(t *testing.T) {
	permanent := &apiCallError{err: errors.New("400 invalid argument"), retryable: false}
	gen := &stubGenerator{errs: []error{permanent, permanent, permanent}}
	svc := newTestFeedbackService(gen, NewCircuitBreaker(5, time.Minute))

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if !result.Degraded {
		t.Fatal("expected fallback for permanent failure")
	}
	if gen.calls != 1 {
		t.Fatalf("permanent failures must not be retried, got %d calls", gen.calls)
	}
}

func TestGenerateStopsWhenCircuitOpen(t *testing.T) {
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.RecordFailure()

	gen := &stubGenerator{responses: []string{validFeedbackJSON}}
	svc := newTestFeedbackService(gen, breaker)

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if !result.Degraded {
		t.Fatal("expected fallback while circuit is open")
	}
	if gen.calls != 0 {
		t.Fatalf("open circuit must not touch the transport, got %d calls", gen.calls)
	}
}

func TestGenerateTripsBreakerAfterRepeatedFailures(t *testing.T) {
	transient := &apiCallError{err: errors.New("unavailable"), retryable: true}
	gen := &stubGenerator{errs: []error{transient, transient, transient}}
	breaker := NewCircuitBreaker(3, time.Minute)
	svc := newTestFeedbackService(gen, breaker)

	result := svc.Generate(context.Background(), "job", "", nil, testScore())

	if !result.Degraded {
		t.Fatal("expected fallback after exhausted retries")
	}
	if breaker.State() != StateOpen {
		t.Fatalf("expected breaker tripped after 3 failures, got %s", breaker.State())
	}
}

func TestFallbackIsDeterministicAndNamesMissingKeywords(t *testing.T) {
	svc := newTestFeedbackService(&stubGenerator{}, NewCircuitBreaker(5, time.Minute))

	first := svc.Fallback(testScore())
	second := svc.Fallback(testScore())

	if !first.Degraded || !second.Degraded {
		t.Fatal("fallback results must be marked degraded")
	}
	if first.Feedback.OverallAssessment != second.Feedback.OverallAssessment {
		t.Fatal("fallback must be deterministic")
	}
	if len(first.Feedback.Recommendations) != len(second.Feedback.Recommendations) {
		t.Fatal("fallback must be deterministic")
	}

	top := first.Feedback.Recommendations[0]
	if top.Priority != models.PriorityHigh {
		t.Fatalf("expected missing-keyword advice first, got %+v", top)
	}
	if !strings.Contains(top.Suggestion, "Kubernetes") {
		t.Fatalf("expected missing keywords named in the suggestion, got %q", top.Suggestion)
	}
}

func TestParseFeedbackNormalizesUnknownEnumValues(t *testing.T) {
	raw := `{
	  "overall_assessment": "ok",
	  "recommendations": [
	    {"category": "vibes", "priority": "URGENT", "suggestion": "do a thing"}
	  ]
	}`

	feedback, err := parseFeedbackResponse(raw)
	if err != nil {
		t.Fatalf("parseFeedbackResponse returned error: %v", err)
	}

	item := feedback.Recommendations[0]
	if item.Category != models.CategoryGeneral {
		t.Errorf("unknown category should normalize to general, got %q", item.Category)
	}
	if item.Priority != models.PriorityMedium {
		t.Errorf("unknown priority should normalize to medium, got %q", item.Priority)
	}
}

func TestParseFeedbackDropsEmptySuggestions(t *testing.T) {
	raw := `{
	  "overall_assessment": "ok",
	  "recommendations": [
	    {"category": "skills", "priority": "high", "suggestion": "   "},
	    {"category": "skills", "priority": "low", "suggestion": "real advice"}
	  ]
	}`

	feedback, err := parseFeedbackResponse(raw)
	if err != nil {
		t.Fatalf("parseFeedbackResponse returned error: %v", err)
	}
	if len(feedback.Recommendations) != 1 || feedback.Recommendations[0].Suggestion != "real advice" {
		t.Fatalf("expected blank suggestions dropped, got %+v", feedback.Recommendations)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", "\n{\"a\": 1}\n"},
		{`prefix text {"a": {"b": 2}} suffix`, `{"a": {"b": 2}}`},
		{"no json at all", "no json at all"},
	}
	for _, tc := range cases {
		got := extractJSON(tc.in)
		if strings.TrimSpace(got) != strings.TrimSpace(tc.want) {
			t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildFeedbackPromptIncludesContext(t *testing.T) {
	builder := NewPromptBuilder()
	entities := []models.Entity{
		{Type: models.EntitySkill, Text: "Go", Confidence: 0.9, Source: models.SourceModel},
	}

	prompt := builder.BuildFeedbackPrompt("We need a Go developer.", "Backend Engineer", entities, testScore())

	for _, fragment := range []string{"Backend Engineer", "We need a Go developer.", "72.5", "Kubernetes", "overall_assessment"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}
