package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resume-analyzer/internal/models"
)

// AnalysisRequest is the single entry point's input: either a raw document
// or direct resume text, plus the job description and optional context.
type AnalysisRequest struct {
	// RequestID is an opaque caller-supplied identifier echoed on the
	// result. The pipeline never mints its own, so identical requests
	// produce identical results.
	RequestID      string
	Document       *models.RawDocument
	ResumeText     string
	JobDescription string
	JobTitle       string
	// Deadline overrides the configured global budget when positive.
	Deadline time.Duration
}

// PipelineService runs the full analysis: ingestion, then entity
// extraction and semantic scoring in parallel, then feedback generation,
// all under one global deadline.
type PipelineService interface {
	Run(ctx context.Context, req *AnalysisRequest) (*models.AnalysisResult, error)
}

type pipelineService struct {
	ingest         IngestService
	entities       EntityService
	scorer         ScorerService
	feedback       FeedbackService
	deadline       time.Duration
	feedbackBudget time.Duration
	minResumeChars int
	logger         *zap.Logger
}

func NewPipelineService(
	ingest IngestService,
	entities EntityService,
	scorer ScorerService,
	feedback FeedbackService,
	deadline time.Duration,
	feedbackBudget time.Duration,
	minResumeChars int,
	logger *zap.Logger,
) PipelineService {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	if minResumeChars <= 0 {
		minResumeChars = 50
	}
	return &pipelineService{
		ingest:         ingest,
		entities:       entities,
		scorer:         scorer,
		feedback:       feedback,
		deadline:       deadline,
		feedbackBudget: feedbackBudget,
		minResumeChars: minResumeChars,
		logger:         logger,
	}
}

func (p *pipelineService) Run(ctx context.Context, req *AnalysisRequest) (*models.AnalysisResult, error) {
	start := time.Now()

	deadline := p.deadline
	if req.Deadline > 0 {
		deadline = req.Deadline
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	logger := p.logger.With(zap.String("request_id", req.RequestID))
	logger.Info("analysis started",
		zap.Bool("has_document", req.Document != nil),
		zap.String("job_title", req.JobTitle),
		zap.Duration("deadline", deadline))

	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, models.NewPipelineError(models.StagePipeline, models.ErrInsufficientText,
			"job description must not be empty")
	}

	// Stage 1: ingestion.
	extraction, err := p.resolveText(ctx, req)
	if err != nil {
		return nil, p.classify(ctx, models.StageIngestion, err)
	}

	logger.Info("ingestion completed",
		zap.String("method", string(extraction.Method)),
		zap.Int("text_length", len(extraction.Text)),
		zap.Float64("confidence", extraction.Confidence))

	// Stage 2: entity extraction and semantic scoring are independent, so
	// they run concurrently and join before feedback.
	var (
		entityResult *EntityResult
		score        *models.CompatibilityScore
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		entityResult = p.entities.Extract(groupCtx, extraction)
		return nil
	})

	group.Go(func() error {
		var scoreErr error
		score, scoreErr = p.scorer.Score(groupCtx, extraction.Text, req.JobDescription)
		return scoreErr
	})

	if err := group.Wait(); err != nil {
		// Scoring has no fallback; the match score is the product's
		// central number.
		return nil, p.classify(ctx, models.StageSemantic, err)
	}

	logger.Info("extraction and scoring completed",
		zap.Int("entities", len(entityResult.Entities)),
		zap.Bool("entities_degraded", entityResult.Degraded),
		zap.Float64("similarity", score.Similarity))

	// Stage 3: feedback, but only if enough budget remains to make the
	// outbound call worthwhile.
	feedbackStatus := models.StageSuccess
	var feedbackResult *FeedbackResult

	if budget, ok := ctx.Deadline(); ok && time.Until(budget) < p.feedbackBudget {
		logger.Warn("insufficient budget for feedback call, using fallback",
			zap.Duration("remaining", time.Until(budget)),
			zap.Duration("required", p.feedbackBudget))
		feedbackResult = p.feedback.Fallback(score)
		feedbackStatus = models.StageSkipped
	} else {
		feedbackResult = p.feedback.Generate(ctx, req.JobDescription, req.JobTitle, entityResult.Entities, score)
		if feedbackResult.Degraded {
			feedbackStatus = models.StageDegraded
		}
	}

	// The deadline supersedes everything: if it fired, no partial result
	// escapes unlabeled.
	if err := ctx.Err(); err != nil {
		return nil, p.classify(ctx, models.StagePipeline, err)
	}

	entityStatus := models.StageSuccess
	if entityResult.Degraded {
		entityStatus = models.StageDegraded
	}

	ingestionStatus := models.StageSuccess
	if extraction.Method == models.MethodOCR {
		ingestionStatus = models.StageDegraded
	}

	result := &models.AnalysisResult{
		ID:         req.RequestID,
		JobTitle:   req.JobTitle,
		Extraction: *extraction,
		Entities:   entityResult.Entities,
		Contact:    entityResult.Contact,
		Score:      *score,
		Feedback:   feedbackResult.Feedback,
		Stages: models.StageReport{
			Ingestion: ingestionStatus,
			Entities:  entityStatus,
			Semantic:  models.StageSuccess,
			Feedback:  feedbackStatus,
		},
		Elapsed:   time.Since(start),
		CreatedAt: start.UTC(),
	}

	logger.Info("analysis completed",
		zap.Float64("similarity", result.Score.Similarity),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func (p *pipelineService) resolveText(ctx context.Context, req *AnalysisRequest) (*models.ExtractedText, error) {
	if req.Document != nil {
		return p.ingest.Ingest(ctx, req.Document)
	}

	text := strings.TrimSpace(req.ResumeText)
	if len(text) < p.minResumeChars {
		return nil, models.NewPipelineError(models.StageIngestion, models.ErrInsufficientText,
			"resume text is too short for meaningful analysis (minimum %d characters)", p.minResumeChars)
	}

	return &models.ExtractedText{
		Text:       text,
		Method:     models.MethodDirectInput,
		Confidence: 1.0,
	}, nil
}

// classify maps stage errors onto the pipeline taxonomy. A fired deadline
// supersedes any other in-flight classification; caller cancellation is
// not a pipeline failure mode and propagates unclassified.
func (p *pipelineService) classify(ctx context.Context, stage models.Stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewPipelineError(models.StagePipeline, models.ErrTimeout,
			"analysis exceeded the global deadline")
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var pipeErr *models.PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr
	}

	switch stage {
	case models.StageSemantic:
		return models.NewPipelineError(stage, models.ErrSemanticAnalysis, "%v", err)
	default:
		return models.NewPipelineError(stage, models.ErrInsufficientText, "%v", err)
	}
}
