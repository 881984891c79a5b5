package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/pkg/logger"
	"toolshed/internal/repository/memory"
	"toolshed/internal/service/metadata"
	"toolshed/internal/service/tools"
)

type fallbackResolver struct{}

func (fallbackResolver) Resolve(ctx context.Context, pageURL, justification string) metadata.Resolution {
	return metadata.Fallback(pageURL, justification)
}

func testEntries() []seedEntry {
	return []seedEntry{
		{Line: 1, URL: "https://example.com", Justification: "Drafts release notes for me"},
		{Line: 2, URL: "https://www.example.com/?utm_source=x", Justification: "Still the best for release notes"},
		{Line: 3, URL: "example.org", Justification: "Missing a scheme entirely"},
	}
}

func TestSeederRun(t *testing.T) {
	repo := memory.NewToolRepository()
	s := &Seeder{
		service: tools.NewService(repo, fallbackResolver{}, nil, nil, logger.Discard(), tools.Options{
			MinJustificationLength: 10,
		}),
		tools:       repo,
		logger:      logger.Discard(),
		submittedBy: "seeder",
	}

	stats := s.Run(context.Background(), testEntries())

	assert.Equal(t, &SeedingStats{Created: 1, Updated: 1, Skipped: 1}, stats)

	stored, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://example.com", stored[0].URL)
	assert.Equal(t, "seeder", stored[0].SubmittedBy)
}

func TestSeederDryRunWritesNothing(t *testing.T) {
	repo := memory.NewToolRepository()
	s := &Seeder{
		tools:  repo,
		logger: logger.Discard(),
		dryRun: true,
	}

	stats := s.Run(context.Background(), testEntries())

	// Both valid lines look new because nothing was written
	assert.Equal(t, &SeedingStats{Created: 2, Skipped: 1}, stats)

	stored, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSeederStopsOnCancel(t *testing.T) {
	s := &Seeder{
		tools:  memory.NewToolRepository(),
		logger: logger.Discard(),
		dryRun: true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, &SeedingStats{}, s.Run(ctx, testEntries()))
}
