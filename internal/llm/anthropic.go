package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultMaxTokens      = 1024
)

// AnthropicGenerator forces a single tool call whose input schema is the
// requested output schema, so the tool input is the structured result
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates a generator for the Messages API
func NewAnthropicGenerator(apiKey, model, baseURL string) *AnthropicGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	name := req.Name
	if name == "" {
		name = "record_output"
	}

	tool := anthropic.ToolParam{
		Name:        name,
		Description: anthropic.String("Record the structured result."),
	}
	if req.Schema != nil {
		// Round-trip through JSON to get the SDK's schema param type
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema: %w", err)
		}
		var inputSchema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schemaJSON, &inputSchema); err != nil {
			return nil, fmt.Errorf("failed to convert schema: %w", err)
		}
		tool.InputSchema = inputSchema
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: name},
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic request: %w", ErrGeneration, err)
	}

	for _, block := range message.Content {
		if block.Type == "tool_use" && block.Name == name {
			return json.RawMessage(block.Input), nil
		}
	}

	// Fall back to text output when the model ignored the tool
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return json.RawMessage(block.Text), nil
		}
	}

	return nil, fmt.Errorf("%w: anthropic returned no tool call", ErrGeneration)
}
