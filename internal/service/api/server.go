package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"toolshed/internal/config"
)

// APIService serves the HTTP API
type APIService struct {
	config *config.Config
	logger *slog.Logger
	server *http.Server
}

// New creates a new API service around an already routed handler
func New(config *config.Config, logger *slog.Logger, handler http.Handler) *APIService {
	return &APIService{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              ":" + config.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Submissions wait for page fetches and generation calls
			WriteTimeout: config.Resolver.FetchTimeout + 2*config.Resolver.GenerateTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving the API. It returns nil after a graceful Stop.
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
