package http

import (
	"log/slog"
	"net/http"

	"toolshed/internal/http/handlers"
	"toolshed/internal/http/middleware"
	"toolshed/internal/metrics"
	"toolshed/internal/service/tools"
)

type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	metrics       *metrics.Metrics
	healthHandler *handlers.HealthHandler
	statsHandler  *handlers.StatsHandler
	toolsHandler  *handlers.ToolsHandler
}

func NewRouter(logger *slog.Logger, service *tools.Service, m *metrics.Metrics, checks ...handlers.HealthCheck) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		metrics:       m,
		healthHandler: handlers.NewHealthHandler(logger, checks...),
		statsHandler:  handlers.NewStatsHandler(logger, service),
		toolsHandler:  handlers.NewToolsHandler(logger, service),
	}
}

func (r *Router) SetupRoutes() http.Handler {
	// Health check and metrics
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)
	if r.metrics != nil {
		r.mux.Handle("GET /metrics", r.metrics.Handler())
	}

	// API v1 routes - Tools
	r.mux.HandleFunc("GET /api/v1/tools", r.toolsHandler.ListTools)
	r.mux.HandleFunc("POST /api/v1/tools", r.toolsHandler.SubmitTool)
	r.mux.HandleFunc("GET /api/v1/tools/{id}", r.toolsHandler.GetTool)
	r.mux.HandleFunc("POST /api/v1/tools/{id}/refresh", r.toolsHandler.RefreshTool)
	r.mux.HandleFunc("POST /api/v1/tools/{id}/vote", r.toolsHandler.VoteTool)

	// API v1 routes - Stats
	r.mux.HandleFunc("GET /api/v1/stats", r.statsHandler.HandleStats)

	return middleware.CORS(middleware.Logging(r.logger)(r.mux))
}
