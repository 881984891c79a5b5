package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"toolshed/internal/domain"
	"toolshed/internal/service/tools"
)

type ToolsHandler struct {
	logger  *slog.Logger
	service *tools.Service
}

func NewToolsHandler(logger *slog.Logger, service *tools.Service) *ToolsHandler {
	return &ToolsHandler{
		logger:  logger,
		service: service,
	}
}

// refreshRequest is the optional body of a refresh call
type refreshRequest struct {
	URL           string `json:"url"`
	Justification string `json:"justification"`
}

// voteRequest is the body of a vote call
type voteRequest struct {
	UpvoteIncrement   int `json:"upvoteIncrement"`
	DownvoteIncrement int `json:"downvoteIncrement"`
}

// ListTools returns every tool, newest first
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

// GetTool returns one tool by ID
func (h *ToolsHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Tool not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get tool", "error", err, "tool_id", r.PathValue("id"))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, tool)
}

// SubmitTool resolves and stores a submitted URL
func (h *ToolsHandler) SubmitTool(w http.ResponseWriter, r *http.Request) {
	var in tools.SubmitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, tools.Result{Error: "Invalid request body."})
		return
	}

	res := h.service.Submit(r.Context(), in)
	status := resultStatus(res)
	if res.Success {
		status = http.StatusCreated
	}
	writeJSON(w, h.logger, status, res)
}

// RefreshTool re-resolves a stored tool. With ?async=true the refresh is
// queued for the worker and 202 is returned.
func (h *ToolsHandler) RefreshTool(w http.ResponseWriter, r *http.Request) {
	// The body is optional
	var body refreshRequest
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, h.logger, http.StatusBadRequest, tools.Result{Error: "Invalid request body."})
		return
	}

	in := tools.RefreshInput{
		ToolID:        r.PathValue("id"),
		URL:           body.URL,
		Justification: body.Justification,
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		res := h.service.RefreshAsync(r.Context(), in)
		status := resultStatus(res)
		if res.Success {
			status = http.StatusAccepted
		}
		writeJSON(w, h.logger, status, res)
		return
	}

	res := h.service.Refresh(r.Context(), in)
	writeJSON(w, h.logger, resultStatus(res), res)
}

// VoteTool applies a vote toggle
func (h *ToolsHandler) VoteTool(w http.ResponseWriter, r *http.Request) {
	var body voteRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, tools.Result{Error: "Invalid request body."})
		return
	}

	res := h.service.Vote(r.Context(), tools.VoteInput{
		ToolID:            r.PathValue("id"),
		UpvoteIncrement:   body.UpvoteIncrement,
		DownvoteIncrement: body.DownvoteIncrement,
	})
	writeJSON(w, h.logger, resultStatus(res), res)
}
