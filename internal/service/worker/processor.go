package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"toolshed/internal/domain"
	"toolshed/internal/service/tools"
)

// Refresher re-resolves stored tools. *tools.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, in tools.RefreshInput) tools.Result
}

// ToolGetter loads a stored tool
type ToolGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Tool, error)
}

// Announcer publishes a newly listed tool somewhere people will see it
type Announcer interface {
	Announce(ctx context.Context, tool *domain.Tool) error
}

// errPermanent marks a job that retrying cannot fix
var errPermanent = errors.New("permanent job failure")

// JobProcessor handles the different types of background jobs
type JobProcessor struct {
	logger    *slog.Logger
	refresher Refresher
	tools     ToolGetter
	announcer Announcer
}

// NewJobProcessor creates a job processor. announcer may be nil, in which
// case announcement jobs complete without doing anything.
func NewJobProcessor(logger *slog.Logger, refresher Refresher, tools ToolGetter, announcer Announcer) *JobProcessor {
	return &JobProcessor{
		logger:    logger,
		refresher: refresher,
		tools:     tools,
		announcer: announcer,
	}
}

// Process dispatches a job to its handler
func (p *JobProcessor) Process(ctx context.Context, job *domain.QueueJob, logger *slog.Logger) error {
	switch job.Type {
	case domain.JobTypeRefreshTool:
		return p.ProcessRefresh(ctx, job.Payload, logger)
	case domain.JobTypeAnnounceTool:
		return p.ProcessAnnouncement(ctx, job.Payload, logger)
	default:
		return fmt.Errorf("%w: unknown job type %s", errPermanent, job.Type)
	}
}

// ProcessRefresh re-resolves a tool's metadata
func (p *JobProcessor) ProcessRefresh(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	var job domain.RefreshJobPayload
	if err := decodePayload(payload, &job); err != nil {
		return err
	}
	if job.ToolID == "" {
		return fmt.Errorf("%w: missing tool_id in payload", errPermanent)
	}

	logger.Info("Processing refresh job", "tool_id", job.ToolID, "url", job.URL)

	res := p.refresher.Refresh(ctx, tools.RefreshInput{
		ToolID:        job.ToolID,
		URL:           job.URL,
		Justification: job.Justification,
	})
	if res.Success {
		logger.Info("Refresh completed", "tool_id", job.ToolID, "message", res.Message)
		return nil
	}

	if errors.Is(res.Err, domain.ErrNotFound) ||
		errors.Is(res.Err, domain.ErrInvalidURL) ||
		errors.Is(res.Err, domain.ErrInvalidInput) {
		return fmt.Errorf("%w: %s", errPermanent, res.Error)
	}
	return fmt.Errorf("refresh failed: %s: %w", res.Error, res.Err)
}

// ProcessAnnouncement posts a newly listed tool
func (p *JobProcessor) ProcessAnnouncement(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	var job domain.AnnounceJobPayload
	if err := decodePayload(payload, &job); err != nil {
		return err
	}

	if p.announcer == nil {
		logger.Debug("No announcer configured, skipping", "tool_id", job.ToolID)
		return nil
	}

	tool, err := p.tools.GetByID(ctx, job.ToolID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: tool %s no longer exists", errPermanent, job.ToolID)
		}
		return fmt.Errorf("failed to load tool for announcement: %w", err)
	}

	return p.announcer.Announce(ctx, tool)
}

// decodePayload converts the generic queue payload back into its typed form
func decodePayload(payload map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal payload: %v", errPermanent, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", errPermanent, err)
	}
	return nil
}
