// Package handlers provides HTTP handlers for rebalance checks.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	job     *rebalancing.Job
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler. job may be nil, in which case
// the last weekly report is never available.
func NewHandler(
	service *rebalancing.Service,
	job *rebalancing.Job,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		job:     job,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleCheckUser handles GET /api/users/{userID}/rebalance
func (h *Handler) HandleCheckUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	analysis, err := h.service.CheckUser(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Rebalance check failed")
		h.writeError(w, http.StatusInternalServerError, "rebalance check failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": analysis,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleLastReport handles GET /api/rebalancing/last
func (h *Handler) HandleLastReport(w http.ResponseWriter, r *http.Request) {
	var report *rebalancing.Report
	if h.job != nil {
		report = h.job.LastReport()
	}
	if report == nil {
		h.writeError(w, http.StatusNotFound, "no rebalance check has completed yet")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
