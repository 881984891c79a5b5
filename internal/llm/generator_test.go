package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	output string
	err    error
	delay  time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, _ Request) (json.RawMessage, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.output), nil
}

var testSchema = Schema{
	"type": "object",
	"properties": map[string]any{
		"title":      map[string]any{"type": "string"},
		"categories": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"title"},
}

func TestStructuredGenerate(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr error
	}{
		{
			name:   "Valid object",
			output: `{"title":"Midjourney","categories":["image-generation"]}`,
			want:   `{"title":"Midjourney","categories":["image-generation"]}`,
		},
		{
			name:   "Object inside code fence",
			output: "```json\n{\"title\":\"Cursor\"}\n```",
			want:   `{"title":"Cursor"}`,
		},
		{
			name:    "Missing required field",
			output:  `{"categories":[]}`,
			wantErr: ErrSchema,
		},
		{
			name:    "Wrong type",
			output:  `{"title":42}`,
			wantErr: ErrSchema,
		},
		{
			name:    "Prose only",
			output:  "I don't know this tool.",
			wantErr: ErrSchema,
		},
		{
			name:    "Empty output",
			output:  "   ",
			wantErr: ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStructured(&fakeGenerator{output: tt.output}, time.Second)
			raw, err := s.Generate(context.Background(), Request{Schema: testSchema})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestStructuredWrapsProviderErrors(t *testing.T) {
	s := NewStructured(&fakeGenerator{err: errors.New("quota exceeded")}, time.Second)

	_, err := s.Generate(context.Background(), Request{Schema: testSchema})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStructuredTimeout(t *testing.T) {
	s := NewStructured(&fakeGenerator{output: `{"title":"x"}`, delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	_, err := s.Generate(context.Background(), Request{Schema: testSchema})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestJSONSystemPrompt(t *testing.T) {
	prompt, err := jsonSystemPrompt(Request{System: "You catalogue tools.", Schema: testSchema})
	require.NoError(t, err)
	assert.Contains(t, prompt, "You catalogue tools.")
	assert.Contains(t, prompt, `"required":["title"]`)
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), ProviderConfig{Provider: "mystery"})
	require.Error(t, err)
}
