package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all holdings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/holdings", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/refresh", h.HandleRefresh) // Client-triggered price reconciliation

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
		})
	})
}
