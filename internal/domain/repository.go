package domain

import (
	"context"
)

// ToolRepository defines the interface for tool persistence
type ToolRepository interface {
	// Create inserts a new tool and assigns its ID if empty
	Create(ctx context.Context, tool *Tool) error

	// GetByID retrieves a tool by ID, returning ErrNotFound when absent
	GetByID(ctx context.Context, id string) (*Tool, error)

	// GetByURL finds a tool by its normalized URL (for duplicate detection).
	// Returns nil and no error when absent.
	GetByURL(ctx context.Context, url string) (*Tool, error)

	// Update applies the non-nil fields of update and returns the stored tool
	Update(ctx context.Context, id string, update ToolUpdate) (*Tool, error)

	// IncrementCounters atomically adds the non-zero deltas to the vote counters
	IncrementCounters(ctx context.Context, id string, delta VoteDelta) error

	// List returns every tool ordered by submission time, newest first
	List(ctx context.Context) ([]*Tool, error)
}

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue
	Enqueue(ctx context.Context, jobType string, payload interface{}) error

	// Dequeue retrieves the next job from the queue, nil when none is ready
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)

	// ProcessRetryJobs moves jobs whose backoff has elapsed back onto the queue
	ProcessRetryJobs(ctx context.Context, jobType string) error
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	RetryCount int                    `json:"retry_count"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  *string                `json:"updated_at"`
}

// Job types
const (
	JobTypeRefreshTool  = "refresh_tool"
	JobTypeAnnounceTool = "announce_tool"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// RefreshJobPayload is enqueued by an asynchronous refresh request
type RefreshJobPayload struct {
	ToolID        string `json:"tool_id"`
	URL           string `json:"url"`
	Justification string `json:"justification"`
}

// AnnounceJobPayload is enqueued after a new tool has been saved
type AnnounceJobPayload struct {
	ToolID string `json:"tool_id"`
}
