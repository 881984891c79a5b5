package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"toolshed/internal/domain"
)

func TestBuildIncDocument(t *testing.T) {
	assert.Equal(t, bson.M{"upvotes": 1}, buildIncDocument(domain.VoteDelta{Upvotes: 1}))
	assert.Equal(t, bson.M{"upvotes": -1, "downvotes": 1}, buildIncDocument(domain.VoteDelta{Upvotes: -1, Downvotes: 1}))
	assert.Empty(t, buildIncDocument(domain.VoteDelta{}))
}

func TestBuildSetDocument(t *testing.T) {
	name := "Cursor"
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	set := buildSetDocument(domain.ToolUpdate{Name: &name, LastUpdatedAt: at})

	assert.Equal(t, bson.M{"name": "Cursor", "last_updated_at": at}, set)
}

func TestBuildSetDocumentSkipsEmptyCategories(t *testing.T) {
	set := buildSetDocument(domain.ToolUpdate{Categories: []string{}})
	_, ok := set["categories"]
	assert.False(t, ok)
	assert.Contains(t, set, "last_updated_at")
}

func TestNormalizeTimes(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	updated := time.Date(2026, 5, 1, 14, 0, 0, 0, loc)
	tool := &domain.Tool{
		SubmittedAt:   time.Date(2026, 5, 1, 12, 0, 0, 0, loc),
		LastUpdatedAt: &updated,
	}

	normalizeTimes(tool)

	assert.Equal(t, time.UTC, tool.SubmittedAt.Location())
	assert.Equal(t, 10, tool.SubmittedAt.Hour())
	assert.Equal(t, 12, tool.LastUpdatedAt.Hour())
	assert.Equal(t, []string{}, tool.Categories)
}
