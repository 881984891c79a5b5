package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"toolshed/internal/domain"
	"toolshed/internal/metrics"
)

// jobTypes are polled in this order each cycle
var jobTypes = []string{domain.JobTypeRefreshTool, domain.JobTypeAnnounceTool}

// Options tunes the polling loop
type Options struct {
	PollInterval    time.Duration
	MaxJobsPerCycle int
	JobTimeout      time.Duration
}

// DefaultOptions returns the polling settings used by cmd/worker
func DefaultOptions() Options {
	return Options{
		PollInterval:    5 * time.Second,
		MaxJobsPerCycle: 10,
		JobTimeout:      2 * time.Minute,
	}
}

// WorkerService processes background jobs
type WorkerService struct {
	logger    *slog.Logger
	queueRepo domain.QueueRepository
	processor *JobProcessor
	metrics   *metrics.Metrics
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new worker service. m may be nil.
func New(logger *slog.Logger, queueRepo domain.QueueRepository, processor *JobProcessor, m *metrics.Metrics, opts Options) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerService{
		logger:    logger,
		queueRepo: queueRepo,
		processor: processor,
		metrics:   m,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing jobs in the background
func (w *WorkerService) Start() {
	w.logger.Info("Starting worker service...",
		"poll_interval", w.opts.PollInterval,
		"job_types", jobTypes,
	)

	w.wg.Add(1)
	go w.processJobs()
}

// Stop cancels the polling loop and waits for the job in flight, up to ctx
func (w *WorkerService) Stop(ctx context.Context) error {
	w.logger.Info("Stopping worker service...")
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker did not stop in time: %w", ctx.Err())
	}
}

// processJobs continuously processes jobs from the queue
func (w *WorkerService) processJobs() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Job processing stopped")
			return
		case <-ticker.C:
			w.RunOnce(w.ctx)
		}
	}
}

// RunOnce performs one polling cycle over every job type
func (w *WorkerService) RunOnce(ctx context.Context) {
	for _, jobType := range jobTypes {
		if ctx.Err() != nil {
			return
		}
		if err := w.queueRepo.ProcessRetryJobs(ctx, jobType); err != nil {
			w.logger.Error("Failed to requeue retry jobs", "error", err, "job_type", jobType)
		}
		w.processJobType(ctx, jobType)
	}
}

// processJobType processes up to MaxJobsPerCycle pending jobs of one type
func (w *WorkerService) processJobType(ctx context.Context, jobType string) {
	pendingCount, err := w.queueRepo.GetPendingCount(ctx, jobType)
	if err != nil {
		w.logger.Error("Failed to get pending job count",
			"error", err,
			"job_type", jobType,
		)
		return
	}
	w.metrics.SetQueueDepth(jobType, pendingCount)

	if pendingCount == 0 {
		return
	}

	w.logger.Debug("Processing pending jobs",
		"job_type", jobType,
		"count", pendingCount,
	)

	maxJobs := min(pendingCount, w.opts.MaxJobsPerCycle)
	for i := 0; i < maxJobs; i++ {
		job, err := w.queueRepo.Dequeue(ctx, jobType)
		if err != nil {
			w.logger.Error("Failed to dequeue job",
				"error", err,
				"job_type", jobType,
			)
			continue
		}
		if job == nil {
			break
		}

		w.processJob(ctx, job)
	}
}

// processJob runs one dequeued job and records its outcome in the queue
func (w *WorkerService) processJob(ctx context.Context, job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"retry_count", job.RetryCount,
	)

	jobCtx, cancel := context.WithTimeout(ctx, w.opts.JobTimeout)
	processingErr := w.processor.Process(jobCtx, job, jobLogger)
	cancel()

	// Queue bookkeeping must succeed even when shutdown cancelled ctx
	bookkeeping, done := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer done()

	switch {
	case processingErr == nil:
		if err := w.queueRepo.Complete(bookkeeping, job.ID); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}
	case errors.Is(processingErr, errPermanent):
		jobLogger.Warn("Dropping job that cannot succeed", "error", processingErr)
		if err := w.queueRepo.Complete(bookkeeping, job.ID); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}
	default:
		jobLogger.Error("Job processing failed", "error", processingErr)
		if err := w.queueRepo.Fail(bookkeeping, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}
	}

	duration := time.Since(startTime)
	w.metrics.ObserveJob(job.Type, duration, processingErr)
	jobLogger.Debug("Job processing completed",
		"duration", duration,
		"success", processingErr == nil,
	)
}

// HealthCheck reports whether the worker loop is alive and the queue reachable
func (w *WorkerService) HealthCheck(ctx context.Context) error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}
	if _, err := w.queueRepo.GetPendingCount(ctx, domain.JobTypeRefreshTool); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}
	return nil
}
