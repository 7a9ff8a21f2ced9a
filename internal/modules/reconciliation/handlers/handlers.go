// Package handlers provides HTTP handlers for price reconciliation.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles reconciliation HTTP requests
type Handler struct {
	job *reconciliation.Job
	log zerolog.Logger
}

// NewHandler creates a new reconciliation handler
func NewHandler(job *reconciliation.Job, log zerolog.Logger) *Handler {
	return &Handler{
		job: job,
		log: log.With().Str("handler", "reconciliation").Logger(),
	}
}

// StatusResponse describes the job's current state and last completed run
type StatusResponse struct {
	Report *reconciliation.Report `json:"report"`
	State  reconciliation.State   `json:"state"`
}

// RegisterRoutes registers all reconciliation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reconciliation", func(r chi.Router) {
		r.Get("/last", h.HandleGetLast) // Last report and current state
		r.Post("/run", h.HandleRun)     // Reconcile all users now
	})
}

// HandleGetLast returns the last report. Report is null before the first run.
func (h *Handler) HandleGetLast(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{
		State:  h.job.State(),
		Report: h.job.LastReport(),
	})
}

// HandleRun reconciles every user's quoted holdings synchronously
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	scope := reconciliation.AllUsers()
	scope.Trigger = reconciliation.TriggerClient

	report, err := h.job.Reconcile(r.Context(), scope)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual reconciliation failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reconciliation failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{State: h.job.State(), Report: report})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
