package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrGeneration wraps provider failures: transport, quota, timeout, empty output
	ErrGeneration = errors.New("generation failed")

	// ErrSchema marks output that does not satisfy the requested schema
	ErrSchema = errors.New("generated output does not match schema")
)

// Schema is a JSON Schema document expressed as a Go value
type Schema map[string]any

// Request is one structured generation call
type Request struct {
	// Name identifies the output shape to the provider (tool name for Anthropic)
	Name   string
	System string
	Prompt string
	Schema Schema
}

// Generator produces a JSON object for a prompt
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Structured bounds every call with a timeout and validates the output
// against the request schema. Any failure is reported as ErrGeneration or ErrSchema.
type Structured struct {
	inner   Generator
	timeout time.Duration
}

// NewStructured wraps a provider generator
func NewStructured(inner Generator, timeout time.Duration) *Structured {
	return &Structured{inner: inner, timeout: timeout}
}

func (s *Structured) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.inner.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrGeneration) || errors.Is(err, ErrSchema) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	raw, err = extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	if req.Schema != nil {
		if err := Validate(req.Schema, raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// Validate checks raw against schema
func Validate(schema Schema, raw json.RawMessage) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(map[string]any(schema)), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			problems[i] = e.String()
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(problems, "; "))
	}
	return nil
}

// extractJSONObject trims surrounding prose and code fences some models
// add around the object
func extractJSONObject(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrGeneration)
	}

	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrSchema)
	}

	obj := trimmed[start : end+1]
	if !json.Valid(obj) {
		return nil, fmt.Errorf("%w: malformed JSON object", ErrSchema)
	}
	return json.RawMessage(obj), nil
}
