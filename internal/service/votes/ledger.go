package votes

import (
	"context"
	"fmt"
	"log/slog"

	"toolshed/internal/domain"
	"toolshed/internal/metrics"
)

// Counter is the slice of the tool repository the ledger writes through
type Counter interface {
	IncrementCounters(ctx context.Context, id string, delta domain.VoteDelta) error
}

// Ledger applies vote toggles to a tool's counters. Each call is a single
// relative increment in the store, so concurrent voters never lose updates.
type Ledger struct {
	store   Counter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLedger creates a vote ledger. metrics may be nil.
func NewLedger(store Counter, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, metrics: m, logger: logger}
}

// ApplyVote adds upvotes and downvotes, each in {-1, 0, +1}, to the tool.
// Switching a vote from up to down is one call with (-1, +1).
func (l *Ledger) ApplyVote(ctx context.Context, toolID string, upvotes, downvotes int) error {
	delta := domain.VoteDelta{Upvotes: upvotes, Downvotes: downvotes}
	if !delta.Valid() {
		return fmt.Errorf("%w: got upvote %d, downvote %d", domain.ErrInvalidVote, upvotes, downvotes)
	}
	if delta.IsZero() {
		return nil
	}

	if err := l.store.IncrementCounters(ctx, toolID, delta); err != nil {
		return fmt.Errorf("failed to apply vote to tool %s: %w", toolID, err)
	}

	l.metrics.ObserveVote(upvotes, downvotes)
	l.logger.Debug("Vote applied",
		"tool_id", toolID,
		"upvote_increment", upvotes,
		"downvote_increment", downvotes,
	)
	return nil
}
