package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolshed/internal/bootstrap"
	"toolshed/internal/config"
	apphttp "toolshed/internal/http"
	"toolshed/internal/http/handlers"
	"toolshed/internal/metrics"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/repository/redis"
	"toolshed/internal/service/api"
	"toolshed/internal/service/tools"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate API-specific configuration
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("Starting API service...", "store", cfg.StoreDriver)

	ctx := context.Background()
	m := metrics.New()

	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	resolver, err := bootstrap.NewResolver(ctx, cfg, log, m)
	if err != nil {
		log.Error("Failed to create metadata resolver", "error", err)
		os.Exit(1)
	}
	defer resolver.Close()

	checks := []handlers.HealthCheck{{Name: "store", Check: store.Ping}}

	// The queue is optional for the API: without it new tools are not
	// announced and refreshes only run inline
	var queue tools.Enqueuer
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		queue = redis.NewQueueRepository(redisClient, log)
		checks = append(checks, handlers.HealthCheck{
			Name:  "queue",
			Check: func(ctx context.Context) error { return redis.HealthCheck(ctx, redisClient) },
		})
	} else {
		log.Warn("REDIS_URL not set, background jobs disabled")
	}

	toolService := tools.NewService(store.Tools, resolver, queue, m, log, tools.Options{
		MinJustificationLength: cfg.MinJustificationLength,
	})
	router := apphttp.NewRouter(log, toolService, m, checks...)
	apiService := api.New(cfg, log, router.SetupRoutes())

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiService.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}
