package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fetch strategies
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Evidence modes handed to the page prompt
const (
	EvidenceTags     = "tags"
	EvidenceMarkdown = "markdown"
)

// ResolverConfig holds the metadata resolution policy. Values come from the
// environment and may be overridden by a YAML file.
type ResolverConfig struct {
	Fetcher              string        `yaml:"fetcher"`
	BrowserPath          string        `yaml:"browser_path"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	FetchMaxBytes        int64         `yaml:"fetch_max_bytes"`
	GenerateTimeout      time.Duration `yaml:"generate_timeout"`
	KnowledgeFirst       bool          `yaml:"knowledge_first"`
	EvidenceMode         string        `yaml:"evidence_mode"`
	EvidenceMaxChars     int           `yaml:"evidence_max_chars"`
	SummarizeFromBody    bool          `yaml:"summarize_from_body"`
	TrustGeneratedImages bool          `yaml:"trust_generated_images"`
	MaxCategories        int           `yaml:"max_categories"`
}

// DefaultResolverConfig returns the policy used when nothing is configured
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Fetcher:           FetcherHTTP,
		FetchTimeout:      15 * time.Second,
		FetchMaxBytes:     2 << 20,
		GenerateTimeout:   20 * time.Second,
		KnowledgeFirst:    true,
		EvidenceMode:      EvidenceTags,
		EvidenceMaxChars:  6000,
		SummarizeFromBody: true,
		MaxCategories:     3,
	}
}

func resolverFromEnv() ResolverConfig {
	d := DefaultResolverConfig()
	return ResolverConfig{
		Fetcher:              getEnvWithDefault("FETCHER", d.Fetcher),
		BrowserPath:          getEnvWithDefault("BROWSER_PATH", d.BrowserPath),
		FetchTimeout:         getEnvDuration("FETCH_TIMEOUT", d.FetchTimeout),
		FetchMaxBytes:        int64(getEnvInt("FETCH_MAX_BYTES", int(d.FetchMaxBytes))),
		GenerateTimeout:      getEnvDuration("GENERATE_TIMEOUT", d.GenerateTimeout),
		KnowledgeFirst:       getEnvBool("KNOWLEDGE_FIRST", d.KnowledgeFirst),
		EvidenceMode:         getEnvWithDefault("EVIDENCE_MODE", d.EvidenceMode),
		EvidenceMaxChars:     getEnvInt("EVIDENCE_MAX_CHARS", d.EvidenceMaxChars),
		SummarizeFromBody:    getEnvBool("SUMMARIZE_FROM_BODY", d.SummarizeFromBody),
		TrustGeneratedImages: getEnvBool("TRUST_GENERATED_IMAGES", d.TrustGeneratedImages),
		MaxCategories:        getEnvInt("MAX_CATEGORIES", d.MaxCategories),
	}
}

// MergeFile overlays the keys present in a YAML policy file. Keys missing
// from the file keep their current values.
func (r *ResolverConfig) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read resolver config: %w", err)
	}

	// Decoding into the populated struct leaves absent keys untouched
	if err := yaml.Unmarshal(data, r); err != nil {
		return fmt.Errorf("failed to parse resolver config: %w", err)
	}
	return nil
}

// Validate rejects policies the resolver cannot run with
func (r *ResolverConfig) Validate() error {
	switch r.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("unknown fetcher %q", r.Fetcher)
	}

	switch r.EvidenceMode {
	case EvidenceTags, EvidenceMarkdown:
	default:
		return fmt.Errorf("unknown evidence mode %q", r.EvidenceMode)
	}

	if r.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", r.FetchTimeout)
	}
	if r.GenerateTimeout <= 0 {
		return fmt.Errorf("generate timeout must be positive, got %s", r.GenerateTimeout)
	}
	if r.FetchMaxBytes <= 0 {
		return fmt.Errorf("fetch max bytes must be positive, got %d", r.FetchMaxBytes)
	}
	if r.MaxCategories < 1 || r.MaxCategories > 3 {
		return fmt.Errorf("max categories must be between 1 and 3, got %d", r.MaxCategories)
	}
	if r.EvidenceMode == EvidenceMarkdown && r.EvidenceMaxChars <= 0 {
		return fmt.Errorf("evidence max chars must be positive in markdown mode")
	}
	return nil
}
