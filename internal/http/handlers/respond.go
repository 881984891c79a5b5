package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"toolshed/internal/domain"
	"toolshed/internal/service/tools"
)

// maxBodyBytes caps request bodies; submissions are a few short strings
const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// resultStatus maps a failed operation onto an HTTP status
func resultStatus(res tools.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case errors.Is(res.Err, domain.ErrInvalidURL),
		errors.Is(res.Err, domain.ErrInvalidInput),
		errors.Is(res.Err, domain.ErrInvalidVote):
		return http.StatusBadRequest
	case errors.Is(res.Err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(res.Err, tools.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
