// Package handlers provides HTTP handlers for holdings management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Refresher runs a client-triggered price reconciliation for one user
type Refresher interface {
	Reconcile(ctx context.Context, scope reconciliation.Scope) (*reconciliation.Report, error)
}

// Handler handles holdings HTTP requests
type Handler struct {
	service   *holdings.Service
	refresher Refresher
	log       zerolog.Logger
}

// NewHandler creates a new holdings handler
func NewHandler(service *holdings.Service, refresher Refresher, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		refresher: refresher,
		log:       log.With().Str("handler", "holdings").Logger(),
	}
}

// RefreshResponse is returned by the refresh endpoint
type RefreshResponse struct {
	Report    *reconciliation.Report        `json:"report"`
	Portfolio *valuation.PortfolioValuation `json:"portfolio"`
}

// HandleList returns the user's valued holdings, totals and sector allocation
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	portfolio, err := h.service.Portfolio(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load portfolio")
		h.writeError(w, http.StatusInternalServerError, "failed to load holdings")
		return
	}

	h.writeJSON(w, http.StatusOK, portfolio)
}

// HandleCreate adds a holding
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req holdings.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// HandleGet returns one valued holding
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	holding, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, holding)
}

// HandleUpdate applies a partial update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req holdings.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleDelete removes a holding
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh reconciles the user's quoted holdings now and returns the fresh valuation
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	report, err := h.refresher.Reconcile(r.Context(), reconciliation.UserScope(userID))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Price refresh failed")
		h.writeError(w, http.StatusInternalServerError, "price refresh failed")
		return
	}

	portfolio, err := h.service.Portfolio(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load holdings")
		return
	}

	h.writeJSON(w, http.StatusOK, RefreshResponse{Report: report, Portfolio: portfolio})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHoldingNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidHolding):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Holdings request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
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
