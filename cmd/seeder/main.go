package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"toolshed/internal/bootstrap"
	"toolshed/internal/config"
	"toolshed/internal/domain"
	"toolshed/internal/metrics"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/pkg/urlnorm"
	"toolshed/internal/repository/redis"
	"toolshed/internal/service/tools"
)

func main() {
	var (
		file        = flag.String("file", "", "Seed file with one 'url | justification' per line (required)")
		submittedBy = flag.String("submitted-by", "seeder", "Submitter recorded on created tools")
		fallback    = flag.String("justification", "Seeded from the curated tool list", "Justification for lines without one")
		dryRun      = flag.Bool("dry-run", false, "Print what would be done without submitting anything")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file flag is required")
		flag.Usage()
		os.Exit(1)
	}

	// The seeder owns its flags, so only the environment is read
	cfg := config.FromEnv()
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("Starting tool seeder...",
		"file", *file,
		"submitted_by", *submittedBy,
		"dry_run", *dryRun,
	)

	f, err := os.Open(*file)
	if err != nil {
		log.Error("Failed to open seed file", "error", err)
		os.Exit(1)
	}
	entries, err := parseSeedFile(f, *fallback)
	f.Close()
	if err != nil {
		log.Error("Failed to parse seed file", "error", err)
		os.Exit(1)
	}
	log.Info("Parsed seed file", "entries", len(entries))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Shutdown signal received, stopping seeder...")
		cancel()
	}()

	m := metrics.New()
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	seeder := &Seeder{
		tools:       store.Tools,
		logger:      log,
		submittedBy: *submittedBy,
		dryRun:      *dryRun,
	}

	if !*dryRun {
		resolver, err := bootstrap.NewResolver(ctx, cfg, log, m)
		if err != nil {
			log.Error("Failed to create metadata resolver", "error", err)
			os.Exit(1)
		}
		defer resolver.Close()

		// Seeded tools are announced like any other when a queue is available
		var queue tools.Enqueuer
		if cfg.RedisURL != "" {
			redisClient, err := redis.NewClient(cfg.RedisURL, log)
			if err != nil {
				log.Error("Failed to connect to Redis", "error", err)
				os.Exit(1)
			}
			defer redisClient.Close()
			queue = redis.NewQueueRepository(redisClient, log)
		}

		seeder.service = tools.NewService(store.Tools, resolver, queue, m, log, tools.Options{
			MinJustificationLength: cfg.MinJustificationLength,
		})
	}

	stats := seeder.Run(ctx, entries)
	log.Info("Seeding completed",
		"entries", len(entries),
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	if stats.Errors > 0 {
		os.Exit(1)
	}
}

// Seeder submits seed entries through the tool service
type Seeder struct {
	service     *tools.Service
	tools       domain.ToolRepository
	logger      *slog.Logger
	submittedBy string
	dryRun      bool
}

// SeedingStats tracks statistics for the seeding process
type SeedingStats struct {
	Created int
	Updated int
	Skipped int
	Errors  int
}

// Run submits entries in order, stopping early if ctx is cancelled
func (s *Seeder) Run(ctx context.Context, entries []seedEntry) *SeedingStats {
	stats := &SeedingStats{}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			s.logger.Warn("Context cancelled, stopping seeding")
			return stats
		default:
		}

		log := s.logger.With("line", entry.Line, "url", entry.URL)

		normalized, err := urlnorm.NormalizeURL(entry.URL)
		if err != nil {
			log.Warn("Skipping invalid URL", "error", err)
			stats.Skipped++
			continue
		}

		existing, err := s.tools.GetByURL(ctx, normalized)
		if err != nil {
			log.Error("Failed to look up tool", "error", err)
			stats.Errors++
			continue
		}

		if s.dryRun {
			if existing != nil {
				log.Info("[DRY RUN] Would refresh existing tool", "tool_id", existing.ID)
				stats.Updated++
			} else {
				log.Info("[DRY RUN] Would create tool", "normalized_url", normalized)
				stats.Created++
			}
			continue
		}

		result := s.service.Submit(ctx, tools.SubmitInput{
			URL:           entry.URL,
			SubmittedBy:   s.submittedBy,
			Justification: entry.Justification,
		})
		if !result.Success {
			log.Error("Failed to submit tool", "error", result.Error)
			stats.Errors++
			continue
		}

		if existing != nil {
			stats.Updated++
		} else {
			stats.Created++
		}
		log.Info("Submitted tool", "tool_id", result.Data.ID, "name", result.Data.Name)
	}

	return stats
}
