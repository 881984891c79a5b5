package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/config"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/repository/memory"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreDriverMemory}

	store, err := OpenStore(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	assert.IsType(t, &memory.ToolRepository{}, store.Tools)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{StoreDriver: "sqlite"}

	_, err := OpenStore(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestProviderConfig(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:     "OpenAI",
		OpenAIAPIKey:    "sk-openai",
		AnthropicAPIKey: "sk-anthropic",
		Resolver:        config.DefaultResolverConfig(),
	}

	pc := providerConfig(cfg)
	assert.Equal(t, config.LLMProviderOpenAI, pc.Provider)
	assert.Equal(t, "sk-openai", pc.APIKey)
	assert.Equal(t, cfg.Resolver.GenerateTimeout, pc.Timeout)

	cfg.LLMProvider = config.LLMProviderAnthropic
	assert.Equal(t, "sk-anthropic", providerConfig(cfg).APIKey)
}

func TestNewResolverHTTPFetcher(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:     config.LLMProviderAnthropic,
		AnthropicAPIKey: "sk-test",
		Resolver:        config.DefaultResolverConfig(),
	}

	r, err := NewResolver(context.Background(), cfg, logger.Discard(), nil)
	require.NoError(t, err)
	require.NotNil(t, r.Resolver)
	assert.NoError(t, r.Close())
}
