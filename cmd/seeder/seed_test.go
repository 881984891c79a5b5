package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedFile(t *testing.T) {
	input := `# curated list
https://midjourney.com | Best image generator I have used

[Perplexity](https://perplexity.ai) | Search with sources cited
<https://elevenlabs.io>
`
	entries, err := parseSeedFile(strings.NewReader(input), "Seeded from the curated list")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, seedEntry{Line: 2, URL: "https://midjourney.com", Justification: "Best image generator I have used"}, entries[0])
	assert.Equal(t, "https://perplexity.ai", entries[1].URL)
	assert.Equal(t, 4, entries[1].Line)
	assert.Equal(t, "https://elevenlabs.io", entries[2].URL)
	assert.Equal(t, "Seeded from the curated list", entries[2].Justification)
}

func TestParseSeedFileMissingURL(t *testing.T) {
	_, err := parseSeedFile(strings.NewReader(" | just a reason\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: " https://example.com ", want: "https://example.com"},
		{name: "markdown link", input: "[tool](https://example.com/x)", want: "https://example.com/x"},
		{name: "angle brackets", input: "<https://example.com>", want: "https://example.com"},
		{name: "zero width space", input: "https://exa\u200Bmple.com", want: "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanURL(tt.input))
		})
	}
}
