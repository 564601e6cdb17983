package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resume-analyzer/internal/config"
	"resume-analyzer/internal/logger"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/services"
)

func main() {
	var (
		resumePath = flag.String("resume", "", "resume file or directory of resumes (pdf, docx, txt)")
		jobPath    = flag.String("job", "", "file containing the job description text")
		jobTitle   = flag.String("job-title", "", "optional job title for context")
		deadline   = flag.Duration("deadline", 0, "optional per-request deadline override")
	)
	flag.Parse()

	if *resumePath == "" || *jobPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyzer -resume <file|dir> -job <file> [-job-title title] [-deadline 30s]")
		os.Exit(2)
	}

	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	pipeline, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize pipeline", zap.Error(err))
	}

	jobDescription, err := os.ReadFile(*jobPath)
	if err != nil {
		log.Fatal("failed to read job description", zap.String("path", *jobPath), zap.Error(err))
	}

	info, err := os.Stat(*resumePath)
	if err != nil {
		log.Fatal("failed to stat resume path", zap.String("path", *resumePath), zap.Error(err))
	}

	if info.IsDir() {
		runBatch(ctx, cfg, log, pipeline, *resumePath, string(jobDescription), *jobTitle, *deadline)
		return
	}

	result, err := pipeline.Run(ctx, &services.AnalysisRequest{
		RequestID:      uuid.New().String(),
		Document:       loadDocument(log, *resumePath),
		JobDescription: string(jobDescription),
		JobTitle:       *jobTitle,
		Deadline:       *deadline,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	printResult(result)
}

func buildPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.PipelineService, error) {
	scratch := services.NewScratchService(cfg.Ingest.ScratchDir)
	if err := scratch.EnsureBaseDir(); err != nil {
		return nil, err
	}

	ingest := services.NewIngestService(
		services.NewPDFExtractor(log),
		services.NewOCRExtractor(scratch, cfg.Ingest.OCRLanguage, cfg.Ingest.OCRDPI, log),
		services.NewDOCXExtractor(log),
		services.NewTextExtractor(log),
		cfg.Ingest.MaxFileSize,
		cfg.Ingest.MinTextLength,
		log,
	)

	chunker := services.NewTextChunker()

	ner := services.NewNERClient(cfg.Models.NEREndpoint, cfg.Models.Timeout)
	if err := ner.Healthy(ctx); err != nil {
		// The rule-based fallback covers NER outages, so this is not
		// fatal; it just means every request starts degraded.
		log.Warn("ner sidecar is not healthy, entity extraction will run degraded", zap.Error(err))
	}

	entities := services.NewEntityService(ner, chunker, cfg.Models.ConfidenceThreshold, cfg.Models.NERMaxChars, log)

	embedder := services.NewEmbedClient(cfg.Models.EmbedEndpoint, cfg.Models.Timeout)
	if err := embedder.Healthy(ctx); err != nil {
		// No fallback exists for the score, so a missing embedding model
		// is fatal at startup rather than per-request.
		return nil, fmt.Errorf("embedding sidecar unavailable: %w", err)
	}

	scorer := services.NewScorerService(embedder, chunker, services.NewKeywordExtractor(),
		cfg.Models.EmbedWindow, cfg.Models.EmbedOverlap, log)

	generator, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}

	breaker := services.NewCircuitBreaker(cfg.Gemini.BreakerFailures, cfg.Gemini.BreakerCooldown)
	feedback := services.NewFeedbackService(generator, breaker,
		cfg.Gemini.MaxRetries, cfg.Gemini.InitialBackoff, cfg.Gemini.MaxBackoff, log)

	return services.NewPipelineService(ingest, entities, scorer, feedback,
		cfg.Pipeline.Deadline, cfg.Pipeline.FeedbackBudget, cfg.Pipeline.MinResumeChars, log), nil
}

func runBatch(ctx context.Context, cfg *config.Config, log *zap.Logger, pipeline services.PipelineService, dir, jobDescription, jobTitle string, deadline time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal("failed to read resume directory", zap.String("dir", dir), zap.Error(err))
	}

	var jobs []services.BatchJob
	for _, entry := range entries {
		if entry.IsDir() || !supportedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		jobs = append(jobs, services.BatchJob{
			Name: entry.Name(),
			Request: &services.AnalysisRequest{
				RequestID:      uuid.New().String(),
				Document:       loadDocument(log, path),
				JobDescription: jobDescription,
				JobTitle:       jobTitle,
				Deadline:       deadline,
			},
		})
	}

	if len(jobs) == 0 {
		log.Fatal("no supported resume files found", zap.String("dir", dir))
	}

	results := make(chan services.BatchResult, len(jobs))
	worker := services.NewBatchWorker(pipeline, results, cfg.Worker.Concurrency, log)
	worker.Start(ctx)

	for _, job := range jobs {
		worker.Enqueue(job)
	}

	failed := 0
	for range jobs {
		res := <-results
		fmt.Printf("=== %s ===\n", res.Name)
		if res.Err != nil {
			failed++
			printError(res.Err)
			continue
		}
		printResult(res.Result)
	}
	worker.Stop()

	if failed > 0 {
		os.Exit(1)
	}
}

func loadDocument(log *zap.Logger, path string) *models.RawDocument {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("failed to read resume", zap.String("path", path), zap.Error(err))
	}

	return &models.RawDocument{
		Content:  content,
		Filename: filepath.Base(path),
		Size:     int64(len(content)),
	}
}

func supportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt":
		return true
	default:
		return false
	}
}

func printResult(result *models.AnalysisResult) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func printError(err error) {
	var pipeErr *models.PipelineError
	if errors.As(err, &pipeErr) {
		out, _ := json.MarshalIndent(pipeErr, "", "  ")
		fmt.Fprintln(os.Stderr, string(out))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
