package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolshed/internal/bootstrap"
	"toolshed/internal/config"
	"toolshed/internal/metrics"
	"toolshed/internal/pkg/logger"
	"toolshed/internal/repository/redis"
	"toolshed/internal/service/notify"
	"toolshed/internal/service/tools"
	"toolshed/internal/service/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("Starting worker service...")

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

	// Connect to Redis
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	queueRepo := redis.NewQueueRepository(redisClient, log)

	// Announcements are optional
	var announcer worker.Announcer
	if cfg.HasDiscord() {
		discord, err := notify.NewDiscordAnnouncer(cfg.DiscordToken, cfg.DiscordChannelID, log)
		if err != nil {
			log.Warn("Failed to create Discord announcer", "error", err)
		} else {
			announcer = discord
		}
	}

	toolService := tools.NewService(store.Tools, resolver, queueRepo, m, log, tools.Options{
		MinJustificationLength: cfg.MinJustificationLength,
	})
	processor := worker.NewJobProcessor(log, toolService, store.Tools, announcer)
	workerService := worker.New(log, queueRepo, processor, m, worker.DefaultOptions())

	// Metrics for the worker are served on their own port
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Serving worker metrics", "port", cfg.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err)
		}
	}()

	workerService.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received, stopping worker service...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := workerService.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping worker service", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics server", "error", err)
	}

	log.Info("Worker service shutdown complete")
}
