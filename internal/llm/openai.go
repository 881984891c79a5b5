package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator asks an OpenAI-compatible chat model for a bare JSON object.
// The schema is embedded in the system prompt; Structured validates the result.
type OpenAIGenerator struct {
	model model.ToolCallingChatModel
}

// NewOpenAIGenerator creates a generator backed by an eino chat model
func NewOpenAIGenerator(ctx context.Context, apiKey, modelName, baseURL string) (*OpenAIGenerator, error) {
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	cfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return &OpenAIGenerator{model: chatModel}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	system, err := jsonSystemPrompt(req)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(req.Prompt),
	}

	response, err := g.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %w", ErrGeneration, err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, fmt.Errorf("%w: openai returned empty content", ErrGeneration)
	}

	return json.RawMessage(response.Content), nil
}

func jsonSystemPrompt(req Request) (string, error) {
	var sb strings.Builder
	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with a single JSON object and no other text.")

	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return "", fmt.Errorf("failed to encode schema: %w", err)
		}
		sb.WriteString(" The object must satisfy this JSON Schema:\n")
		sb.Write(schemaJSON)
	}
	return sb.String(), nil
}
