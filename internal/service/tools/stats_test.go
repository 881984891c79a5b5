package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/domain"
	"toolshed/internal/repository/memory"
)

func TestStats(t *testing.T) {
	repo := memory.NewToolRepository()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.Tool{
		URL: "https://a.test", Categories: []string{"writing", "coding"},
		Upvotes: 3, Downvotes: 1, SubmittedAt: base, ImageURL: strPtr("https://a.test/i.png"),
	}))
	require.NoError(t, repo.Create(ctx, &domain.Tool{
		URL: "https://b.test", Categories: []string{"coding"},
		Upvotes: 1, SubmittedAt: base.Add(time.Hour),
	}))

	stats, err := newTestService(repo, &stubResolver{}, nil).Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalTools)
	assert.Equal(t, 4, stats.TotalUpvotes)
	assert.Equal(t, 1, stats.TotalDownvotes)
	assert.Equal(t, 1, stats.WithImage)
	assert.Equal(t, []CategoryCount{{"coding", 2}, {"writing", 1}}, stats.TopCategories)
	require.NotNil(t, stats.LastSubmittedAt)
	assert.Equal(t, base.Add(time.Hour), *stats.LastSubmittedAt)
}

func TestStatsEmpty(t *testing.T) {
	stats, err := newTestService(memory.NewToolRepository(), &stubResolver{}, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTools)
	assert.Empty(t, stats.TopCategories)
	assert.Nil(t, stats.LastSubmittedAt)
}
