package holdings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateRequest is the payload for a new holding.
// CurrentPrice defaults to BuyPrice when omitted.
type CreateRequest struct {
	CurrentPrice *float64                  `json:"current_price"`
	Sector       *string                   `json:"sector"`
	Symbol       string                    `json:"symbol"`
	Name         string                    `json:"name"`
	Category     domain.InstrumentCategory `json:"category"`
	Quantity     float64                   `json:"quantity"`
	BuyPrice     float64                   `json:"buy_price"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged; an empty
// sector string clears the sector.
type UpdateRequest struct {
	Symbol       *string                    `json:"symbol"`
	Name         *string                    `json:"name"`
	Category     *domain.InstrumentCategory `json:"category"`
	Quantity     *float64                   `json:"quantity"`
	BuyPrice     *float64                   `json:"buy_price"`
	CurrentPrice *float64                   `json:"current_price"`
	Sector       *string                    `json:"sector"`
}

// Service manages a user's holdings and their valuation
type Service struct {
	store domain.HoldingsStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewService creates a new holdings service
func NewService(store domain.HoldingsStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		log:   log.With().Str("service", "holdings").Logger(),
	}
}

// Portfolio returns the valued holdings of one user, newest first
func (s *Service) Portfolio(ctx context.Context, userID string) (*valuation.PortfolioValuation, error) {
	holdings, err := s.store.ListHoldings(ctx, domain.HoldingFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	p := valuation.ValuePortfolio(holdings)
	return &p, nil
}

// Create validates and stores a new holding
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*valuation.HoldingValuation, error) {
	now := s.now().UTC().Truncate(time.Second)

	h := domain.Holding{
		ID:        uuid.NewString(),
		UserID:    userID,
		Symbol:    req.Symbol,
		Name:      req.Name,
		Category:  req.Category,
		Quantity:  req.Quantity,
		BuyPrice:  req.BuyPrice,
		Sector:    req.Sector,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.CurrentPrice = h.BuyPrice
	if req.CurrentPrice != nil {
		h.CurrentPrice = *req.CurrentPrice
	}

	h.Normalize()
	if h.Name == "" {
		h.Name = h.Symbol
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, h); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", h.Symbol).
		Str("category", string(h.Category)).
		Msg("Holding added")

	v := valuation.ValueHolding(h)
	return &v, nil
}

// Get returns one valued holding
func (s *Service) Get(ctx context.Context, userID, id string) (*valuation.HoldingValuation, error) {
	h, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	v := valuation.ValueHolding(*h)
	return &v, nil
}

// Update applies a partial update, including a manual current price
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*valuation.HoldingValuation, error) {
	existing, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	h := *existing
	if req.Symbol != nil {
		h.Symbol = *req.Symbol
	}
	if req.Name != nil {
		h.Name = *req.Name
	}
	if req.Category != nil {
		h.Category = *req.Category
	}
	if req.Quantity != nil {
		h.Quantity = *req.Quantity
	}
	if req.BuyPrice != nil {
		h.BuyPrice = *req.BuyPrice
	}
	if req.CurrentPrice != nil {
		h.CurrentPrice = *req.CurrentPrice
	}
	if req.Sector != nil {
		if strings.TrimSpace(*req.Sector) == "" {
			h.Sector = nil
		} else {
			h.Sector = req.Sector
		}
	}
	h.UpdatedAt = s.now().UTC().Truncate(time.Second)

	h.Normalize()
	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, h); err != nil {
		return nil, err
	}

	v := valuation.ValueHolding(h)
	return &v, nil
}

// Delete removes a holding
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Str("id", id).Msg("Holding deleted")
	return nil
}
