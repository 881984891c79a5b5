package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"toolshed/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestBuildIncrementQuery(t *testing.T) {
	tests := []struct {
		name      string
		delta     domain.VoteDelta
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "Upvote only",
			delta:     domain.VoteDelta{Upvotes: 1},
			wantQuery: "UPDATE tools SET upvotes = upvotes + $1 WHERE id = $2",
			wantArgs:  []any{1, "id-1"},
		},
		{
			name:      "Downvote only",
			delta:     domain.VoteDelta{Downvotes: -1},
			wantQuery: "UPDATE tools SET downvotes = downvotes + $1 WHERE id = $2",
			wantArgs:  []any{-1, "id-1"},
		},
		{
			name:      "Switch from up to down",
			delta:     domain.VoteDelta{Upvotes: -1, Downvotes: 1},
			wantQuery: "UPDATE tools SET upvotes = upvotes + $1, downvotes = downvotes + $2 WHERE id = $3",
			wantArgs:  []any{-1, 1, "id-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildIncrementQuery("id-1", tt.delta)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildUpdateQuerySkipsNilFields(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	query, args := buildUpdateQuery("id-1", domain.ToolUpdate{
		Description:   strPtr("New description"),
		LastUpdatedAt: at,
	})

	assert.Contains(t, query, "UPDATE tools SET description = $1, last_updated_at = $2 WHERE id = $3 RETURNING")
	assert.NotContains(t, query, "image_url =")
	assert.NotContains(t, query, "categories =")
	assert.Equal(t, []any{"New description", at, "id-1"}, args)
}

func TestBuildUpdateQueryAllFields(t *testing.T) {
	query, args := buildUpdateQuery("id-1", domain.ToolUpdate{
		Name:          strPtr("Cursor"),
		Description:   strPtr("AI editor"),
		Categories:    []string{"developer-tools"},
		ImageURL:      strPtr("https://cursor.com/og.png"),
		Justification: strPtr("Fast"),
	})

	assert.Contains(t, query, "name = $1, description = $2, categories = $3, image_url = $4, justification = $5, last_updated_at = $6 WHERE id = $7")
	assert.Len(t, args, 7)
	assert.False(t, args[5].(time.Time).IsZero(), "last_updated_at defaults to now")
}

func TestPendingMigrations(t *testing.T) {
	assert.Len(t, pendingMigrations(0), len(migrations))
	assert.Empty(t, pendingMigrations(LatestVersion()))

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version, "migrations must be ordered")
	}
}
