package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

type stubNERClient struct {
	tokens  []NERToken
	perText map[string][]NERToken
	err     error
	calls   int
}

func (s *stubNERClient) Predict(ctx context.Context, text string) ([]NERToken, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.perText != nil {
		return s.perText[text], nil
	}
	return s.tokens, nil
}

func (s *stubNERClient) Healthy(ctx context.Context) error { return s.err }

// fixedChunker returns a canned split regardless of input.
type fixedChunker struct {
	chunks []string
}

func (f *fixedChunker) ChunkText(text string, maxChunkSize, overlap int) []string {
	return f.chunks
}

func extracted(text string) *models.ExtractedText {
	return &models.ExtractedText{Text: text, Method: models.MethodDigitalText, Confidence: 1.0}
}

func TestExtractFiltersLowConfidence(t *testing.T) {
	ner := &stubNERClient{tokens: []NERToken{
		{Label: "SKILLS", Word: "Python", Start: 0, End: 6, Score: 0.95},
		{Label: "SKILLS", Word: "Fortran", Start: 20, End: 27, Score: 0.79},
	}}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("Python and Fortran developer"))

	if result.Degraded {
		t.Fatal("expected model path, got degraded result")
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity above threshold, got %d: %v", len(result.Entities), result.Entities)
	}
	if result.Entities[0].Text != "Python" || result.Entities[0].Source != models.SourceModel {
		t.Fatalf("unexpected entity: %+v", result.Entities[0])
	}
}

func TestExtractGroupsAdjacentTokensWithMinConfidence(t *testing.T) {
	ner := &stubNERClient{tokens: []NERToken{
		{Label: "SKILLS", Word: "machine", Start: 0, End: 7, Score: 0.95},
		{Label: "SKILLS", Word: "learning", Start: 8, End: 16, Score: 0.85},
	}}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("machine learning engineer"))

	if len(result.Entities) != 1 {
		t.Fatalf("expected tokens grouped into 1 entity, got %d: %v", len(result.Entities), result.Entities)
	}
	entity := result.Entities[0]
	if entity.Text != "machine learning" {
		t.Fatalf("expected grouped text %q, got %q", "machine learning", entity.Text)
	}
	if entity.Confidence != 0.85 {
		t.Fatalf("expected group confidence to be its weakest token 0.85, got %f", entity.Confidence)
	}
}

func TestExtractGroupDroppedWhenWeakestTokenBelowThreshold(t *testing.T) {
	ner := &stubNERClient{tokens: []NERToken{
		{Label: "SKILLS", Word: "deep", Start: 0, End: 4, Score: 0.99},
		{Label: "SKILLS", Word: "learning", Start: 5, End: 13, Score: 0.60},
		{Label: "SKILLS", Word: "Docker", Start: 30, End: 36, Score: 0.90},
	}}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("deep learning plus Docker here"))

	if len(result.Entities) != 1 {
		t.Fatalf("expected only the strong standalone entity, got %v", result.Entities)
	}
	if result.Entities[0].Text != "Docker" {
		t.Fatalf("expected Docker, got %q", result.Entities[0].Text)
	}
}

func TestExtractDeduplicatesCaseInsensitively(t *testing.T) {
	ner := &stubNERClient{tokens: []NERToken{
		{Label: "SKILLS", Word: "Python", Start: 0, End: 6, Score: 0.90},
		{Label: "SKILLS", Word: "python", Start: 50, End: 56, Score: 0.95},
	}}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("Python first, python again"))

	if len(result.Entities) != 1 {
		t.Fatalf("expected case-insensitive dedup to 1 entity, got %d: %v", len(result.Entities), result.Entities)
	}
	if result.Entities[0].Confidence != 0.95 {
		t.Fatalf("expected the higher-confidence duplicate kept, got %f", result.Entities[0].Confidence)
	}
}

func TestExtractFallsBackWhenModelUnavailable(t *testing.T) {
	ner := &stubNERClient{err: errors.New("connection refused")}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	text := "Jane Doe\njane.doe@example.com\n+1 555-123-4567\nSenior Software Engineer at Initech Inc\nSkills: Python, Docker, Kubernetes\nBachelor of Science in Computer Science"
	result := svc.Extract(context.Background(), extracted(text))

	if !result.Degraded {
		t.Fatal("expected degraded result from fallback")
	}
	for _, e := range result.Entities {
		if e.Source != models.SourceRules {
			t.Fatalf("fallback entity %q not tagged with rules provenance: %+v", e.Text, e)
		}
	}

	wantSkills := map[string]bool{"Python": false, "Docker": false, "Kubernetes": false}
	for _, e := range result.Entities {
		if e.Type == models.EntitySkill {
			if _, ok := wantSkills[e.Text]; ok {
				wantSkills[e.Text] = true
			}
		}
	}
	for skill, found := range wantSkills {
		if !found {
			t.Errorf("fallback missed skill %q", skill)
		}
	}

	if result.Contact.Email != "jane.doe@example.com" {
		t.Errorf("expected email extracted, got %q", result.Contact.Email)
	}
	if result.Contact.Phone == "" {
		t.Error("expected phone extracted")
	}
}

func TestExtractFallsBackWhenModelFindsNothing(t *testing.T) {
	ner := &stubNERClient{tokens: nil}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("Experienced Go developer with Docker background"))

	if !result.Degraded {
		t.Fatal("expected fallback when the model produces no entities")
	}
	if len(result.Entities) == 0 {
		t.Fatal("expected rule-based entities for known skills")
	}
}

func TestExtractNeverFailsOnEmptyText(t *testing.T) {
	ner := &stubNERClient{err: errors.New("down")}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted(""))

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if !result.Degraded {
		t.Fatal("expected degraded empty result")
	}
	if len(result.Entities) != 0 {
		t.Fatalf("expected no entities from empty text, got %v", result.Entities)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	ner := &stubNERClient{tokens: []NERToken{
		{Label: "SKILLS", Word: "Go", Start: 0, End: 2, Score: 0.92},
		{Label: "SKILLS", Word: "Docker", Start: 10, End: 16, Score: 0.92},
		{Label: "COMPANY", Word: "Initech", Start: 30, End: 37, Score: 0.88},
	}}
	svc := NewEntityService(ner, NewTextChunker(), 0.80, 5000, zap.NewNop())

	first := svc.Extract(context.Background(), extracted("Go and Docker at Initech"))
	second := svc.Extract(context.Background(), extracted("Go and Docker at Initech"))

	if len(first.Entities) != len(second.Entities) {
		t.Fatalf("entity counts differ: %d vs %d", len(first.Entities), len(second.Entities))
	}
	for i := range first.Entities {
		if first.Entities[i] != second.Entities[i] {
			t.Fatalf("entity %d differs between runs: %+v vs %+v", i, first.Entities[i], second.Entities[i])
		}
	}
}

func TestExtractDoesNotGroupAcrossChunkBoundaries(t *testing.T) {
	// Token positions are within-chunk: the last token of one chunk and
	// the first token of the next can look adjacent if offsets are added
	// up naively. They must stay separate entities.
	ner := &stubNERClient{perText: map[string][]NERToken{
		"machine":  {{Label: "SKILLS", Word: "machine", Start: 0, End: 7, Score: 0.90}},
		"learning": {{Label: "SKILLS", Word: "learning", Start: 0, End: 8, Score: 0.90}},
	}}
	chunker := &fixedChunker{chunks: []string{"machine", "learning"}}
	svc := NewEntityService(ner, chunker, 0.80, 5000, zap.NewNop())

	result := svc.Extract(context.Background(), extracted("machine learning"))

	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 separate entities across chunks, got %d: %v", len(result.Entities), result.Entities)
	}
	for _, e := range result.Entities {
		if e.Text != "machine" && e.Text != "learning" {
			t.Fatalf("unexpected merged entity %q", e.Text)
		}
	}
}

func TestGroupAdjacentTokensRespectsGap(t *testing.T) {
	tokens := []NERToken{
		{Label: "SKILLS", Word: "data", Start: 0, End: 4, Score: 0.9},
		{Label: "SKILLS", Word: "engineering", Start: 10, End: 21, Score: 0.9},
	}

	grouped := groupAdjacentTokens(tokens)
	if len(grouped) != 2 {
		t.Fatalf("tokens 6 chars apart must not merge, got %d groups", len(grouped))
	}
}

func TestMapLabel(t *testing.T) {
	cases := []struct {
		label string
		want  models.EntityType
		ok    bool
	}{
		{"SKILLS", models.EntitySkill, true},
		{"designation", models.EntityJobTitle, true},
		{"COMPANIES_WORKED_AT", models.EntityCompany, true},
		{"DEGREE", models.EntityEducation, true},
		{"EMAIL", models.EntityContact, true},
		{"MISC", "", false},
	}

	for _, tc := range cases {
		got, ok := mapLabel(tc.label)
		if ok != tc.ok || got != tc.want {
			t.Errorf("mapLabel(%q) = (%q, %v), want (%q, %v)", tc.label, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeSkill(t *testing.T) {
	cases := map[string]string{
		"golang":     "Go",
		"K8s":        "Kubernetes",
		"javascript": "JavaScript",
		"Terraform":  "Terraform",
	}
	for in, want := range cases {
		if got := normalizeSkill(in); got != want {
			t.Errorf("normalizeSkill(%q) = %q, want %q", in, got, want)
		}
	}
}
