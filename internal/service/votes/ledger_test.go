package votes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/domain"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/repository/memory"
)

type countingStore struct {
	calls []domain.VoteDelta
}

func (s *countingStore) IncrementCounters(ctx context.Context, id string, delta domain.VoteDelta) error {
	s.calls = append(s.calls, delta)
	return nil
}

func seedTool(t *testing.T, repo *memory.ToolRepository) *domain.Tool {
	t.Helper()
	tool := &domain.Tool{
		URL:       "https://example.com",
		Upvotes:   domain.InitialUpvotes,
		Downvotes: domain.InitialDownvotes,
	}
	require.NoError(t, repo.Create(context.Background(), tool))
	return tool
}

func TestApplyVoteToggleNets(t *testing.T) {
	repo := memory.NewToolRepository()
	tool := seedTool(t, repo)
	ledger := NewLedger(repo, nil, logger.Discard())
	ctx := context.Background()

	// up, then switch to down
	require.NoError(t, ledger.ApplyVote(ctx, tool.ID, 1, 0))
	require.NoError(t, ledger.ApplyVote(ctx, tool.ID, -1, 1))

	got, err := repo.GetByID(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialUpvotes, got.Upvotes)
	assert.Equal(t, domain.InitialDownvotes+1, got.Downvotes)
}

func TestApplyVoteRejectsOutOfRange(t *testing.T) {
	store := &countingStore{}
	ledger := NewLedger(store, nil, logger.Discard())

	for _, tc := range [][2]int{{2, 0}, {0, -2}, {5, 5}} {
		err := ledger.ApplyVote(context.Background(), "t1", tc[0], tc[1])
		assert.True(t, errors.Is(err, domain.ErrInvalidVote), "delta %v", tc)
	}
	assert.Empty(t, store.calls)
}

func TestApplyVoteZeroDeltaSkipsWrite(t *testing.T) {
	store := &countingStore{}
	ledger := NewLedger(store, nil, logger.Discard())

	require.NoError(t, ledger.ApplyVote(context.Background(), "t1", 0, 0))
	assert.Empty(t, store.calls)
}

func TestApplyVoteSingleIncrement(t *testing.T) {
	store := &countingStore{}
	ledger := NewLedger(store, nil, logger.Discard())

	require.NoError(t, ledger.ApplyVote(context.Background(), "t1", -1, 1))
	require.Len(t, store.calls, 1)
	assert.Equal(t, domain.VoteDelta{Upvotes: -1, Downvotes: 1}, store.calls[0])
}

func TestApplyVoteMissingTool(t *testing.T) {
	ledger := NewLedger(memory.NewToolRepository(), nil, logger.Discard())

	err := ledger.ApplyVote(context.Background(), "missing", 1, 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
