// Package handlers provides HTTP handlers for on-demand quote lookups.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/quotes"
	"github.com/aristath/folio/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles quote HTTP requests
type Handler struct {
	fetcher *quotes.Fetcher
	log     zerolog.Logger
}

// NewHandler creates a new quotes handler
func NewHandler(fetcher *quotes.Fetcher, log zerolog.Logger) *Handler {
	return &Handler{
		fetcher: fetcher,
		log:     log.With().Str("handler", "quotes").Logger(),
	}
}

// QuotesRequest is the body of a batch quote lookup
type QuotesRequest struct {
	Symbols []string `json:"symbols"`
}

// QuotesResponse carries one result per distinct requested symbol
type QuotesResponse struct {
	Results    []domain.QuoteResult `json:"results"`
	CacheTTLMs int64                `json:"cache_ttl_ms"`
}

// RegisterRoutes registers quote routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quotes", h.HandleLookup)
	r.Post("/quotes", h.HandleFetch)
}

// HandleLookup is the query-string form: GET /quotes?symbols=TCS,INFY
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	symbols := utils.ParseCSV(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	h.serve(w, r, symbols)
}

// HandleFetch resolves up to quotes.MaxBatchSize symbols through the cache
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	var req QuotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols must be a non-empty array")
		return
	}

	h.serve(w, r, req.Symbols)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, symbols []string) {
	results := h.fetcher.FetchQuotes(r.Context(), symbols)
	if len(results) == 0 {
		h.writeError(w, http.StatusBadRequest, "no valid symbols")
		return
	}

	h.log.Debug().
		Int("requested", len(symbols)).
		Int("resolved", len(results)).
		Msg("Quote batch served")

	h.writeJSON(w, http.StatusOK, QuotesResponse{
		Results:    results,
		CacheTTLMs: h.fetcher.Cache().TTL().Milliseconds(),
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
