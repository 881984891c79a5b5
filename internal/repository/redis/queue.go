package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"toolshed/internal/domain"
)

// QueueRepository implements domain.QueueRepository on Redis lists.
// Dequeued jobs sit in a processing list until completed or failed, failed
// jobs wait in a sorted set until their backoff elapses, and jobs that
// exhaust their retries land in a dead letter list.
type QueueRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	keys        queueKeys
	blockFor    time.Duration
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// QueueOption tunes a QueueRepository
type QueueOption func(*QueueRepository)

// WithNamespace prefixes every key, so several deployments can share one Redis
func WithNamespace(ns string) QueueOption {
	return func(r *QueueRepository) { r.keys = queueKeys{namespace: ns} }
}

// WithBlockTimeout sets how long Dequeue waits for a job
func WithBlockTimeout(d time.Duration) QueueOption {
	return func(r *QueueRepository) { r.blockFor = d }
}

// WithMaxRetries sets how many failures a job survives before the dead letter list
func WithMaxRetries(n int) QueueOption {
	return func(r *QueueRepository) { r.maxRetries = n }
}

// NewQueueRepository creates a new Redis queue repository
func NewQueueRepository(client *redis.Client, logger *slog.Logger, opts ...QueueOption) *QueueRepository {
	r := &QueueRepository{
		client:      client,
		logger:      logger,
		keys:        queueKeys{namespace: "toolshed"},
		blockFor:    5 * time.Second,
		maxRetries:  3,
		baseBackoff: 2 * time.Second,
		maxBackoff:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const (
	jobTTL          = 24 * time.Hour
	completedJobTTL = 6 * time.Hour
)

type queueKeys struct {
	namespace string
}

func (k queueKeys) key(parts ...string) string {
	s := k.namespace
	for _, p := range parts {
		s += ":" + p
	}
	return s
}

func (k queueKeys) pending(jobType string) string    { return k.key("queue", jobType) }
func (k queueKeys) processing(jobType string) string { return k.key("processing", jobType) }
func (k queueKeys) retry(jobType string) string      { return k.key("retry", jobType) }
func (k queueKeys) dead(jobType string) string       { return k.key("dead", jobType) }
func (k queueKeys) stats(jobType string) string      { return k.key("stats", jobType) }
func (k queueKeys) job(jobID string) string          { return k.key("job", jobID) }

// storedJob is the JSON document kept under the job key
type storedJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	RetryCount int                    `json:"retry_count"`
	NextRetry  *time.Time             `json:"next_retry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (j *storedJob) toDomain() *domain.QueueJob {
	job := &domain.QueueJob{
		ID:         j.ID,
		Type:       j.Type,
		Payload:    j.Payload,
		Status:     j.Status,
		RetryCount: j.RetryCount,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.UpdatedAt != nil {
		updatedAt := j.UpdatedAt.UTC().Format(time.RFC3339)
		job.UpdatedAt = &updatedAt
	}
	return job
}

// payloadToMap flattens a typed payload into the generic map stored with the job
func payloadToMap(payload interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("payload must encode as a JSON object: %w", err)
	}
	return m, nil
}

// Enqueue adds a new job to the queue
func (r *QueueRepository) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	payloadMap, err := payloadToMap(payload)
	if err != nil {
		return err
	}

	job := &storedJob{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payloadMap,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	jobKey := r.keys.job(job.ID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, jobKey, map[string]interface{}{
		"data":   string(data),
		"status": job.Status,
		"type":   job.Type,
	})
	pipe.Expire(ctx, jobKey, jobTTL)
	pipe.LPush(ctx, r.keys.pending(jobType), job.ID)
	pipe.HIncrBy(ctx, r.keys.stats(jobType), "total_enqueued", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	r.logger.Info("Job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
	)
	return nil
}

// Dequeue blocks up to the configured timeout for the next job. It returns
// nil and no error when the wait times out.
func (r *QueueRepository) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	processingKey := r.keys.processing(jobType)

	// The atomic move keeps the job ID in the processing list if the worker dies
	jobID, err := r.client.BLMove(ctx, r.keys.pending(jobType), processingKey, "RIGHT", "LEFT", r.blockFor).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Job data expired, dropping from processing", "job_id", jobID)
			r.client.LRem(ctx, processingKey, 1, jobID)
			return nil, nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = &now

	if err := r.saveJob(ctx, r.client, job); err != nil {
		r.logger.Error("Failed to update job status", "error", err, "job_id", jobID)
	}

	r.logger.Debug("Job dequeued",
		"job_id", job.ID,
		"job_type", jobType,
		"retry_count", job.RetryCount,
	)
	return job.toDomain(), nil
}

func (r *QueueRepository) loadJob(ctx context.Context, jobID string) (*storedJob, error) {
	data, err := r.client.HGet(ctx, r.keys.job(jobID), "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}

	var job storedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (r *QueueRepository) saveJob(ctx context.Context, c redis.Cmdable, job *storedJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return c.HSet(ctx, r.keys.job(job.ID), map[string]interface{}{
		"data":        string(data),
		"status":      job.Status,
		"retry_count": job.RetryCount,
	}).Err()
}

// Complete marks a job as completed and removes it from processing
func (r *QueueRepository) Complete(ctx context.Context, jobID string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for completion: %w", err)
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusCompleted
	job.UpdatedAt = &now
	job.Error = ""

	pipe := r.client.TxPipeline()
	if err := r.saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, r.keys.processing(job.Type), 1, jobID)
	pipe.HIncrBy(ctx, r.keys.stats(job.Type), "completed", 1)
	pipe.Expire(ctx, r.keys.job(jobID), completedJobTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	r.logger.Debug("Job completed", "job_id", jobID, "job_type", job.Type)
	return nil
}

// Fail records a failure and either schedules a retry with exponential
// backoff or moves the job to the dead letter list
func (r *QueueRepository) Fail(ctx context.Context, jobID string, errorMsg string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for failure: %w", err)
	}

	now := time.Now().UTC()
	job.Error = errorMsg
	job.UpdatedAt = &now
	job.RetryCount++

	pipe := r.client.TxPipeline()

	if job.RetryCount <= r.maxRetries {
		nextRetry := now.Add(retryBackoff(job.RetryCount, r.baseBackoff, r.maxBackoff))
		job.NextRetry = &nextRetry
		job.Status = domain.JobStatusPending

		pipe.ZAdd(ctx, r.keys.retry(job.Type), redis.Z{
			Score:  float64(nextRetry.Unix()),
			Member: jobID,
		})

		r.logger.Warn("Job scheduled for retry",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"next_retry", nextRetry,
			"error", errorMsg,
		)
	} else {
		job.Status = domain.JobStatusFailed
		job.NextRetry = nil
		pipe.LPush(ctx, r.keys.dead(job.Type), jobID)
		pipe.HIncrBy(ctx, r.keys.stats(job.Type), "failed", 1)

		r.logger.Error("Job failed permanently",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"error", errorMsg,
		)
	}

	if err := r.saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, r.keys.processing(job.Type), 1, jobID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to handle job failure: %w", err)
	}
	return nil
}

// retryBackoff doubles the delay per attempt, starting at base and capped at limit
func retryBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// GetPendingCount returns the number of pending jobs for a job type
func (r *QueueRepository) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	count, err := r.client.LLen(ctx, r.keys.pending(jobType)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int(count), nil
}

// ProcessRetryJobs moves jobs whose backoff has elapsed back onto the queue
func (r *QueueRepository) ProcessRetryJobs(ctx context.Context, jobType string) error {
	retryKey := r.keys.retry(jobType)

	jobIDs, err := r.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get retry jobs: %w", err)
	}
	if len(jobIDs) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, jobID := range jobIDs {
		pipe.ZRem(ctx, retryKey, jobID)
		pipe.LPush(ctx, r.keys.pending(jobType), jobID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to process retry jobs: %w", err)
	}

	r.logger.Info("Requeued jobs for retry",
		"job_type", jobType,
		"count", len(jobIDs),
	)
	return nil
}

// GetQueueStats returns counters and current list sizes for a job type
func (r *QueueRepository) GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error) {
	stats, err := r.client.HGetAll(ctx, r.keys.stats(jobType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	result := make(map[string]int64)
	for key, value := range stats {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			result[key] = n
		}
	}

	if n, err := r.client.LLen(ctx, r.keys.pending(jobType)).Result(); err == nil {
		result["current_pending"] = n
	}
	if n, err := r.client.LLen(ctx, r.keys.processing(jobType)).Result(); err == nil {
		result["current_processing"] = n
	}
	if n, err := r.client.ZCard(ctx, r.keys.retry(jobType)).Result(); err == nil {
		result["current_retrying"] = n
	}
	if n, err := r.client.LLen(ctx, r.keys.dead(jobType)).Result(); err == nil {
		result["current_dead"] = n
	}

	return result, nil
}
