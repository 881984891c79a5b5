// Package bootstrap builds the collaborators shared by the binaries under cmd/
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"

	"toolshed/internal/config"
	"toolshed/internal/domain"
	"toolshed/internal/llm"
	"toolshed/internal/metrics"
	"toolshed/internal/repository/memory"
	"toolshed/internal/repository/mongo"
	"toolshed/internal/repository/postgres"
	"toolshed/internal/service/metadata"
)

// Store is the configured tool repository plus what it takes to check and close it
type Store struct {
	Tools  domain.ToolRepository
	Driver string

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the store connection
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the store connection
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore connects to the store selected by STORE_DRIVER. Postgres
// migrations run on open.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := postgres.RunMigrations(db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return &Store{
			Tools:  postgres.NewToolRepository(db, logger),
			Driver: cfg.StoreDriver,
			ping:   db.PingContext,
			close:  db.Close,
		}, nil

	case config.StoreDriverMongo:
		client, err := mongo.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		repo, err := mongo.NewToolRepository(ctx, client, logger)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &Store{
			Tools:  repo,
			Driver: cfg.StoreDriver,
			ping:   client.Ping,
			close:  client.Close,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, tools are lost on restart")
		return &Store{Tools: memory.NewToolRepository(), Driver: cfg.StoreDriver}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Resolver is a metadata resolver together with the resources it owns
type Resolver struct {
	*metadata.Resolver
	fetcher metadata.Fetcher
}

// Close shuts down a headless browser if one was started
func (r *Resolver) Close() error {
	if b, ok := r.fetcher.(*metadata.BrowserFetcher); ok {
		return b.Close()
	}
	return nil
}

// NewResolver builds the metadata resolver from the resolver policy. m may be nil.
func NewResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Resolver, error) {
	policy := cfg.Resolver

	generator, err := llm.New(ctx, providerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	var fetcher metadata.Fetcher
	switch policy.Fetcher {
	case config.FetcherBrowser:
		fetcher = metadata.NewBrowserFetcher(policy.BrowserPath, policy.FetchTimeout, logger)
	default:
		fetcher = metadata.NewHTTPFetcher(policy.FetchTimeout, policy.FetchMaxBytes, logger)
	}

	registry, err := metadata.NewOEmbedRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load oEmbed providers: %w", err)
	}

	resolver := metadata.NewResolver(metadata.Deps{
		Fetcher:   fetcher,
		OEmbed:    metadata.NewOEmbedExtractor(registry, policy.FetchTimeout, logger),
		Generator: generator,
		Evidence:  metadata.NewEvidenceBuilder(policy.EvidenceMode, policy.EvidenceMaxChars),
		Metrics:   m,
		Logger:    logger,
	}, metadata.Options{
		KnowledgeFirst:       policy.KnowledgeFirst,
		SummarizeFromBody:    policy.SummarizeFromBody,
		TrustGeneratedImages: policy.TrustGeneratedImages,
		MaxCategories:        policy.MaxCategories,
	})

	logger.Info("Metadata resolver ready",
		"fetcher", policy.Fetcher,
		"provider", cfg.LLMProvider,
		"evidence_mode", policy.EvidenceMode,
		"knowledge_first", policy.KnowledgeFirst,
		"oembed_providers", registry.ProviderCount(),
	)

	return &Resolver{Resolver: resolver, fetcher: fetcher}, nil
}

func providerConfig(cfg *config.Config) llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Provider: strings.ToLower(cfg.LLMProvider),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  cfg.Resolver.GenerateTimeout,
	}
	switch pc.Provider {
	case config.LLMProviderOpenAI:
		pc.APIKey = cfg.OpenAIAPIKey
	default:
		pc.APIKey = cfg.AnthropicAPIKey
	}
	return pc
}
