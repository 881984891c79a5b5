package metadata

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOEmbedRegistryLoads(t *testing.T) {
	registry, err := NewOEmbedRegistry()
	require.NoError(t, err)
	assert.Greater(t, registry.ProviderCount(), 0)
	assert.NotNil(t, registry.Provider("YouTube"))
	assert.Nil(t, registry.Provider("youtube"), "lookup is case-sensitive")
}

func TestOEmbedRegistryMatching(t *testing.T) {
	registry, err := NewOEmbedRegistry()
	require.NoError(t, err)

	tests := []struct {
		url          string
		wantProvider string
	}{
		{"https://www.youtube.com/watch?v=JUDUC87VuPU", "YouTube"},
		{"https://youtube.com/watch?v=JUDUC87VuPU", "YouTube"},
		{"https://youtu.be/BnkqvBn4OiE", "YouTube"},
		{"https://vimeo.com/123456789", "Vimeo"},
		{"https://www.loom.com/share/abc123", "Loom"},
		{"https://www.figma.com/design/abc/My-File", "Figma"},
		{"https://codepen.io/someone/pen/xyz", "CodePen"},
		{"https://figma.com/design/abc/My-File", "Figma"},
		{"https://codesandbox.io/p/sandbox/agent-demo-abc12", "CodeSandbox"},
		{"https://replit.com/@someone/chatbot", "Replit"},
		{"https://www.canva.com/design/DAF123/view", "Canva"},
		{"https://canva.com/design/DAF123/view", "Canva"},
		{"https://open.spotify.com/track/abc123", ""},
		{"https://midjourney.com", ""},
		{"https://example.com/watch?v=1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			provider := registry.Match(tt.url)
			if tt.wantProvider == "" {
				assert.Nil(t, provider)
				return
			}
			require.NotNil(t, provider)
			assert.Equal(t, tt.wantProvider, provider.Name)
		})
	}
}

func TestSchemeToRegex(t *testing.T) {
	assert.Equal(t, `^https://.*\.youtube\.com/watch.*$`, schemeToRegex("https://*.youtube.com/watch*"))
	assert.Equal(t, `^https://codesandbox\.io/s/.*$`, schemeToRegex("https://codesandbox.io/s/*"))
}

func TestHostVariants(t *testing.T) {
	assert.Equal(t, []string{"https://www.figma.com/file/*", "https://figma.com/file/*"}, hostVariants("https://www.figma.com/file/*"))
	assert.Equal(t, []string{"https://*.youtube.com/v/*", "https://youtube.com/v/*"}, hostVariants("https://*.youtube.com/v/*"))
	assert.Equal(t, []string{"https://vimeo.com/*"}, hostVariants("https://vimeo.com/*"))
}

func TestParseOEmbedRegistrySkipsUnusableProviders(t *testing.T) {
	data := []byte(fmt.Sprintf(`[
		{"provider_name": "NoEndpoints", "endpoints": []},
		{"provider_name": "NoURL", "endpoints": [{"schemes": ["https://a.test/*"], "url": ""}]},
		{"provider_name": "NoSchemes", "endpoints": [{"schemes": [], "url": "%s"}]},
		{"provider_name": "Good", "endpoints": [{"schemes": ["https://good.test/*"], "url": "%s"}]}
	]`, "https://x.test/oembed", "https://good.test/oembed"))

	registry, err := parseOEmbedRegistry(data)
	require.NoError(t, err)
	assert.Equal(t, 1, registry.ProviderCount())
	assert.NotNil(t, registry.Match("https://good.test/item"))

	_, err = parseOEmbedRegistry([]byte("not json"))
	assert.Error(t, err)
}
