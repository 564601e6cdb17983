package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

// BatchJob is one resume queued for analysis against a job description.
type BatchJob struct {
	Name    string
	Request *AnalysisRequest
}

// BatchResult pairs a job with its outcome. Exactly one of Result and Err
// is set.
type BatchResult struct {
	Name   string
	Result *models.AnalysisResult
	Err    error
}

// BatchWorker fans analysis jobs out over a fixed-size pool. Each job runs
// the full pipeline independently; per-request isolation means one bad
// resume never affects the rest of the batch.
type BatchWorker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job BatchJob)
}

type batchWorker struct {
	pipeline    PipelineService
	results     chan<- BatchResult
	jobQueue    chan BatchJob
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	logger      *zap.Logger
}

func NewBatchWorker(pipeline PipelineService, results chan<- BatchResult, concurrency int, logger *zap.Logger) BatchWorker {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &batchWorker{
		pipeline:    pipeline,
		results:     results,
		jobQueue:    make(chan BatchJob, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		logger:      logger,
	}
}

// Start implements BatchWorker.
func (w *batchWorker) Start(ctx context.Context) {
	w.logger.Info("starting batch worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
}

// Stop implements BatchWorker. It waits for in-flight jobs to finish;
// jobs still sitting in the queue are dropped, so callers collect their
// results before stopping.
func (w *batchWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("batch worker stopped")
}

// Enqueue implements BatchWorker.
func (w *batchWorker) Enqueue(job BatchJob) {
	select {
	case w.jobQueue <- job:
	case <-w.stopChan:
		w.logger.Warn("worker stopped, job dropped", zap.String("name", job.Name))
	}
}

func (w *batchWorker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-w.jobQueue:
			w.logger.Debug("processing job",
				zap.Int("worker", workerID),
				zap.String("name", job.Name))

			result, err := w.pipeline.Run(ctx, job.Request)
			if err != nil {
				w.logger.Warn("job failed",
					zap.Int("worker", workerID),
					zap.String("name", job.Name),
					zap.Error(err))
			}

			select {
			case w.results <- BatchResult{Name: job.Name, Result: result, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}
