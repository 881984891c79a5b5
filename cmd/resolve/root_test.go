package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/config"
	"toolshed/internal/service/metadata"
)

func TestWriteResolution(t *testing.T) {
	var buf bytes.Buffer
	res := metadata.Fallback("https://example.com", "Handy for drafting")

	require.NoError(t, writeResolution(&buf, "https://example.com", res, true))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "https://example.com", decoded["url"])
	assert.Equal(t, metadata.TierFallback, decoded["tier"])
	assert.Contains(t, decoded, "metadata")
	assert.NotContains(t, buf.String(), "\n  ", "compact output has no indentation")
}

func TestApplyOptions(t *testing.T) {
	cfg := &config.Config{Resolver: config.DefaultResolverConfig()}
	opts := cliOptions{
		fetcher:         config.FetcherBrowser,
		evidenceMode:    config.EvidenceMarkdown,
		trustImages:     true,
		fetchTimeout:    3 * time.Second,
		generateTimeout: 4 * time.Second,
		logLevel:        "debug",
	}

	applyOptions(cfg, &opts)

	assert.Equal(t, config.FetcherBrowser, cfg.Resolver.Fetcher)
	assert.Equal(t, config.EvidenceMarkdown, cfg.Resolver.EvidenceMode)
	assert.False(t, cfg.Resolver.KnowledgeFirst)
	assert.True(t, cfg.Resolver.TrustGeneratedImages)
	assert.Equal(t, 3*time.Second, cfg.Resolver.FetchTimeout)
	assert.Equal(t, 4*time.Second, cfg.Resolver.GenerateTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestRootCommandRequiresURL(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
