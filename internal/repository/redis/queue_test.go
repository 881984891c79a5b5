package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/domain"
)

func TestRetryBackoff(t *testing.T) {
	base := 2 * time.Second
	limit := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 2 * time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 5, want: 30 * time.Second},
		{attempt: 40, want: 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryBackoff(tt.attempt, base, limit), "attempt %d", tt.attempt)
	}
}

func TestQueueKeys(t *testing.T) {
	k := queueKeys{namespace: "toolshed"}

	assert.Equal(t, "toolshed:queue:refresh_tool", k.pending(domain.JobTypeRefreshTool))
	assert.Equal(t, "toolshed:processing:refresh_tool", k.processing(domain.JobTypeRefreshTool))
	assert.Equal(t, "toolshed:retry:announce_tool", k.retry(domain.JobTypeAnnounceTool))
	assert.Equal(t, "toolshed:dead:announce_tool", k.dead(domain.JobTypeAnnounceTool))
	assert.Equal(t, "toolshed:job:abc", k.job("abc"))
}

func TestPayloadToMap(t *testing.T) {
	m, err := payloadToMap(domain.RefreshJobPayload{ToolID: "t1", URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "t1", m["tool_id"])
	assert.Equal(t, "https://example.com", m["url"])

	_, err = payloadToMap([]string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestStoredJobToDomain(t *testing.T) {
	created := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	job := &storedJob{
		ID:         "j1",
		Type:       domain.JobTypeAnnounceTool,
		Payload:    map[string]interface{}{"tool_id": "t1"},
		Status:     domain.JobStatusProcessing,
		CreatedAt:  created,
		RetryCount: 2,
	}

	got := job.toDomain()

	assert.Equal(t, "j1", got.ID)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "2026-04-01T10:00:00Z", got.CreatedAt)
	assert.Nil(t, got.UpdatedAt)
}

func TestNewQueueRepositoryOptions(t *testing.T) {
	r := NewQueueRepository(nil, nil, WithNamespace("staging"), WithMaxRetries(7), WithBlockTimeout(time.Second))

	assert.Equal(t, "staging:queue:x", r.keys.pending("x"))
	assert.Equal(t, 7, r.maxRetries)
	assert.Equal(t, time.Second, r.blockFor)
}
