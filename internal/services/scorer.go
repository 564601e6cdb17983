package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

// ScorerService computes the semantic compatibility between a resume and
// a job description: a normalized embedding similarity plus a lexical
// keyword-gap analysis that is independent of the embedding.
type ScorerService interface {
	Score(ctx context.Context, resumeText, jobText string) (*models.CompatibilityScore, error)
}

type scorerService struct {
	embedder Embedder
	chunker  TextChunker
	keywords KeywordExtractor
	window   int
	overlap  int
	logger   *zap.Logger
}

func NewScorerService(embedder Embedder, chunker TextChunker, keywords KeywordExtractor, window, overlap int, logger *zap.Logger) ScorerService {
	if window <= 0 {
		window = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &scorerService{
		embedder: embedder,
		chunker:  chunker,
		keywords: keywords,
		window:   window,
		overlap:  overlap,
		logger:   logger,
	}
}

func (s *scorerService) Score(ctx context.Context, resumeText, jobText string) (*models.CompatibilityScore, error) {
	resumeVec, err := s.embedDocument(ctx, resumeText)
	if err != nil {
		return nil, fmt.Errorf("embed resume: %w", err)
	}

	jobVec, err := s.embedDocument(ctx, jobText)
	if err != nil {
		return nil, fmt.Errorf("embed job description: %w", err)
	}

	cos, err := cosineSimilarity(resumeVec, jobVec)
	if err != nil {
		return nil, err
	}

	matched, missing, err := s.keywordGap(resumeText, jobText)
	if err != nil {
		return nil, fmt.Errorf("keyword analysis: %w", err)
	}

	similarity := rescaleSimilarity(cos)

	s.logger.Debug("compatibility scored",
		zap.Float64("similarity", similarity),
		zap.Int("matched_keywords", len(matched)),
		zap.Int("missing_keywords", len(missing)))

	return &models.CompatibilityScore{
		Similarity:      similarity,
		MatchedKeywords: matched,
		MissingKeywords: missing,
	}, nil
}

// embedDocument splits long inputs into overlapping chunks, embeds each
// and combines them by element-wise mean, so the tail of a long resume
// still contributes to its vector.
func (s *scorerService) embedDocument(ctx context.Context, text string) ([]float32, error) {
	chunks := s.chunker.ChunkText(text, s.window, s.overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to embed")
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	return meanPool(vectors)
}

func meanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to pool")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("empty embedding vector")
	}

	pooled := make([]float32, dim)
	for _, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("inconsistent embedding dimensions: %d vs %d", len(vec), dim)
		}
		for i, v := range vec {
			pooled[i] += v
		}
	}

	n := float32(len(vectors))
	for i := range pooled {
		pooled[i] /= n
	}

	return pooled, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding vector")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// rescaleSimilarity maps cosine [-1, 1] onto [0, 100] with two-decimal
// precision, clamped against floating-point overshoot at the boundaries.
func rescaleSimilarity(cos float64) float64 {
	score := (cos + 1) / 2 * 100
	score = math.Round(score*100) / 100

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// keywordGap computes matched = resume ∩ job and missing = job − resume,
// with missing ordered by descending frequency in the job text. The two
// sets are disjoint by construction.
func (s *scorerService) keywordGap(resumeText, jobText string) ([]string, []string, error) {
	resumeSet, err := s.keywords.Extract(resumeText)
	if err != nil {
		return nil, nil, err
	}

	jobSet, err := s.keywords.Extract(jobText)
	if err != nil {
		return nil, nil, err
	}

	var matchedKeys, missingKeys []string
	for _, key := range jobSet.Normalized() {
		if resumeSet.Has(key) {
			matchedKeys = append(matchedKeys, key)
		} else {
			missingKeys = append(missingKeys, key)
		}
	}

	sort.Strings(matchedKeys)

	sort.Slice(missingKeys, func(i, j int) bool {
		fi, fj := jobSet.Frequency(missingKeys[i]), jobSet.Frequency(missingKeys[j])
		if fi != fj {
			return fi > fj
		}
		return missingKeys[i] < missingKeys[j]
	})

	matched := make([]string, 0, len(matchedKeys))
	for _, key := range matchedKeys {
		matched = append(matched, jobSet.Display(key))
	}

	missing := make([]string, 0, len(missingKeys))
	for _, key := range missingKeys {
		missing = append(missing, jobSet.Display(key))
	}

	return matched, missing, nil
}
