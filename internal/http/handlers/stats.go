package handlers

import (
	"log/slog"
	"net/http"

	"toolshed/internal/service/tools"
)

type StatsHandler struct {
	logger  *slog.Logger
	service *tools.Service
}

func NewStatsHandler(logger *slog.Logger, service *tools.Service) *StatsHandler {
	return &StatsHandler{
		logger:  logger,
		service: service,
	}
}

func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, stats)
}
