// Package handlers provides HTTP handlers for portfolio insights.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/folio/internal/modules/insights"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles insights HTTP requests
type Handler struct {
	service *insights.Service
	log     zerolog.Logger
}

// NewHandler creates a new insights handler
func NewHandler(service *insights.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "insights").Logger(),
	}
}

// RegisterRoutes registers insights routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/insights", h.HandleGet)
}

// HandleGet generates insights for the user's current portfolio.
// Generator failures still answer 200 with a fallback insight.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := h.service.Generate(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to build insights")
		h.writeJSON(w, http.StatusInternalServerError, insights.Result{
			Insights: []insights.Insight{insights.UnavailableInsight},
			Source:   insights.SourceFallback,
			Error:    "failed to load holdings",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
