package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderConfig selects and configures a generation backend
type ProviderConfig struct {
	Provider string // anthropic or openai
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// New builds the configured provider wrapped in Structured
func New(ctx context.Context, cfg ProviderConfig) (*Structured, error) {
	var inner Generator

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		inner = NewAnthropicGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai":
		gen, err := NewOpenAIGenerator(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		inner = gen
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return NewStructured(inner, cfg.Timeout), nil
}
