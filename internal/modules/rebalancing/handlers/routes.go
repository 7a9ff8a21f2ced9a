package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/rebalance", h.HandleCheckUser)
	r.Get("/rebalancing/last", h.HandleLastReport)
}
