package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"toolshed/internal/domain"
	"toolshed/internal/metrics"
	"toolshed/internal/service/metadata"
	"toolshed/internal/service/votes"
)

// ErrQueueUnavailable is returned by RefreshAsync when no job queue is configured
var ErrQueueUnavailable = errors.New("job queue not configured")

// Resolver derives metadata for a URL. *metadata.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, pageURL, justification string) metadata.Resolution
}

// Enqueuer is the part of the job queue the service publishes to
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
}

// Result is the outcome of a submit, refresh or vote. Err keeps the
// underlying error for callers that map it onto a transport status.
type Result struct {
	Success bool         `json:"success"`
	Data    *domain.Tool `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`

	Err error `json:"-"`
}

// SubmitInput is a new or repeated tool submission
type SubmitInput struct {
	URL           string `json:"url"`
	SubmittedBy   string `json:"submittedBy"`
	Justification string `json:"justification"`
}

// RefreshInput re-resolves a stored tool. Empty URL and Justification fall
// back to the stored values.
type RefreshInput struct {
	ToolID        string `json:"toolId"`
	URL           string `json:"url"`
	Justification string `json:"justification"`
}

// VoteInput toggles a vote on a tool
type VoteInput struct {
	ToolID            string `json:"toolId"`
	UpvoteIncrement   int    `json:"upvoteIncrement"`
	DownvoteIncrement int    `json:"downvoteIncrement"`
}

// Options configures a Service
type Options struct {
	MinJustificationLength int
}

// Service implements the tool operations on top of the resolver, the
// repository and the vote ledger
type Service struct {
	repo     domain.ToolRepository
	resolver Resolver
	ledger   *votes.Ledger
	queue    Enqueuer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	opts     Options
}

// NewService creates the tool service. queue and m may be nil; without a
// queue new tools are not announced and refreshes only run inline.
func NewService(repo domain.ToolRepository, resolver Resolver, queue Enqueuer, m *metrics.Metrics, logger *slog.Logger, opts Options) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		ledger:   votes.NewLedger(repo, m, logger),
		queue:    queue,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

// Submit validates the input, resolves metadata and stores the tool. A URL
// that is already listed is updated in place instead of duplicated.
func (s *Service) Submit(ctx context.Context, in SubmitInput) Result {
	target, err := validateSubmission(in, s.opts.MinJustificationLength)
	if err != nil {
		s.metrics.ObserveSubmission("invalid")
		return failure(err)
	}

	log := s.logger.With("url", target.Page, "submitted_by", in.SubmittedBy)
	justification := strings.TrimSpace(in.Justification)

	res := s.resolver.Resolve(ctx, target.Page, justification)
	log.Info("Metadata resolved",
		"tier", res.Tier,
		"has_image", res.Metadata.HasImage(),
		"fetch_error", res.FetchError,
	)

	existing, err := s.repo.GetByURL(ctx, target.Key)
	if err != nil {
		return s.persistenceFailure(log, "submission", err)
	}
	if existing != nil {
		return s.resubmit(ctx, log, existing, res, justification)
	}

	tool := newTool(target, strings.TrimSpace(in.SubmittedBy), justification, res.Metadata)
	if err := s.repo.Create(ctx, tool); err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			// Lost a race with a concurrent submission of the same URL
			existing, getErr := s.repo.GetByURL(ctx, target.Key)
			if getErr == nil && existing != nil {
				return s.resubmit(ctx, log, existing, res, justification)
			}
		}
		return s.persistenceFailure(log, "submission", err)
	}

	s.announce(ctx, log, tool.ID)
	s.metrics.ObserveSubmission("created")
	log.Info("Tool created", "tool_id", tool.ID)

	return Result{Success: true, Data: tool, Message: successMessage(msgSubmitted, res)}
}

func (s *Service) resubmit(ctx context.Context, log *slog.Logger, existing *domain.Tool, res metadata.Resolution, justification string) Result {
	update := metadataUpdate(res, existing)
	if justification != "" {
		update.Justification = &justification
	}

	updated, err := s.repo.Update(ctx, existing.ID, update)
	if err != nil {
		return s.persistenceFailure(log, "submission", err)
	}

	s.metrics.ObserveSubmission("updated")
	log.Info("Existing tool updated from resubmission", "tool_id", existing.ID)
	return Result{Success: true, Data: updated, Message: msgResubmitted}
}

// Refresh re-resolves a stored tool and overwrites only the fields that
// resolved to a real value this time
func (s *Service) Refresh(ctx context.Context, in RefreshInput) Result {
	tool, err := s.repo.GetByID(ctx, in.ToolID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Error: msgNotFound, Err: err}
		}
		return s.persistenceFailure(s.logger, "refresh", err)
	}

	pageURL, justification, err := refreshTarget(in, tool)
	if err != nil {
		return failure(err)
	}

	log := s.logger.With("tool_id", tool.ID, "url", pageURL)
	res := s.resolver.Resolve(ctx, pageURL, justification)

	updated, err := s.repo.Update(ctx, tool.ID, metadataUpdate(res, tool))
	if err != nil {
		return s.persistenceFailure(log, "refresh", err)
	}

	log.Info("Tool refreshed",
		"tier", res.Tier,
		"title_source", res.Sources.Title,
		"image_source", res.Sources.Image,
	)
	return Result{Success: true, Data: updated, Message: successMessage(msgRefreshed, res)}
}

// RefreshAsync queues a refresh for the worker
func (s *Service) RefreshAsync(ctx context.Context, in RefreshInput) Result {
	if s.queue == nil {
		return Result{Error: msgQueueDisabled, Err: ErrQueueUnavailable}
	}

	tool, err := s.repo.GetByID(ctx, in.ToolID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Error: msgNotFound, Err: err}
		}
		return s.persistenceFailure(s.logger, "refresh", err)
	}

	pageURL, justification, err := refreshTarget(in, tool)
	if err != nil {
		return failure(err)
	}

	payload := domain.RefreshJobPayload{ToolID: tool.ID, URL: pageURL, Justification: justification}
	if err := s.queue.Enqueue(ctx, domain.JobTypeRefreshTool, payload); err != nil {
		s.logger.Error("Failed to enqueue refresh", "error", err, "tool_id", tool.ID)
		return Result{Error: msgDatabase, Err: err}
	}

	return Result{Success: true, Data: tool, Message: msgRefreshQueued}
}

// Vote applies a vote toggle
func (s *Service) Vote(ctx context.Context, in VoteInput) Result {
	err := s.ledger.ApplyVote(ctx, in.ToolID, in.UpvoteIncrement, in.DownvoteIncrement)
	switch {
	case err == nil:
		return Result{Success: true}
	case errors.Is(err, domain.ErrInvalidVote):
		return Result{Error: msgInvalidVote, Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return Result{Error: msgNotFound, Err: err}
	default:
		return s.persistenceFailure(s.logger.With("tool_id", in.ToolID), "vote", err)
	}
}

// List returns every tool, newest submission first
func (s *Service) List(ctx context.Context) ([]*domain.Tool, error) {
	return s.repo.List(ctx)
}

// Get returns one tool
func (s *Service) Get(ctx context.Context, id string) (*domain.Tool, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) announce(ctx context.Context, log *slog.Logger, toolID string) {
	if s.queue == nil {
		return
	}
	// The tool is already saved, so a queue outage only costs the announcement
	if err := s.queue.Enqueue(ctx, domain.JobTypeAnnounceTool, domain.AnnounceJobPayload{ToolID: toolID}); err != nil {
		log.Warn("Failed to enqueue announcement", "error", err, "tool_id", toolID)
	}
}

func (s *Service) persistenceFailure(log *slog.Logger, op string, err error) Result {
	log.Error("Tool operation failed", "operation", op, "error", err)
	if op == "submission" {
		s.metrics.ObserveSubmission("error")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Error: msgTimeout, Err: err}
	}
	return Result{Error: msgDatabase, Err: err}
}

func failure(err error) Result {
	var verr *validationError
	if errors.As(err, &verr) {
		return Result{Error: verr.message, Err: err}
	}
	return Result{Error: err.Error(), Err: err}
}

func successMessage(msg string, res metadata.Resolution) string {
	if res.Tier == metadata.TierFallback {
		return msgFallbackWarning
	}
	return msg
}

// refreshTarget picks the URL and justification a refresh resolves with
func refreshTarget(in RefreshInput, tool *domain.Tool) (string, string, error) {
	pageURL := tool.URL
	if strings.TrimSpace(in.URL) != "" {
		target, err := parseSubmissionURL(in.URL)
		if err != nil {
			return "", "", err
		}
		pageURL = target.Page
	}

	justification := strings.TrimSpace(in.Justification)
	if justification == "" {
		justification = tool.Justification
	}
	return pageURL, justification, nil
}

func newTool(target submissionURL, submittedBy, justification string, m domain.ToolMetadata) *domain.Tool {
	categories := m.Categories
	if len(categories) == 0 {
		categories = []string{domain.DefaultCategory}
	}

	tool := &domain.Tool{
		URL:           target.Page,
		URLKey:        target.Key,
		Name:          m.Title,
		Description:   m.Description,
		Categories:    categories,
		Price:         domain.DefaultPrice,
		EaseOfUse:     domain.DefaultEaseOfUse,
		SubmittedBy:   submittedBy,
		Justification: justification,
		Upvotes:       domain.InitialUpvotes,
		Downvotes:     domain.InitialDownvotes,
		SubmittedAt:   time.Now().UTC(),
	}
	if m.HasImage() {
		image := *m.ImageURL
		tool.ImageURL = &image
	}
	return tool
}

// metadataUpdate turns a resolution into a partial update. Fields that only
// reached the fallback tier never overwrite stored values, and a missing
// image never erases a stored one.
func metadataUpdate(res metadata.Resolution, current *domain.Tool) domain.ToolUpdate {
	m := res.Metadata
	var update domain.ToolUpdate

	if m.Title != "" && (res.Sources.Title != metadata.SourceFallback || current.Name == "") {
		title := m.Title
		update.Name = &title
	}
	if m.Description != "" && (res.Sources.Description != metadata.SourceFallback || current.Description == "") {
		description := m.Description
		update.Description = &description
	}

	switch {
	case len(m.Categories) > 0 && res.Sources.Categories != metadata.SourceFallback:
		update.Categories = append([]string(nil), m.Categories...)
	case len(current.Categories) == 0:
		update.Categories = []string{domain.DefaultCategory}
	}

	if m.HasImage() {
		image := *m.ImageURL
		update.ImageURL = &image
	}

	update.LastUpdatedAt = time.Now().UTC()
	return update
}
