package domain

import (
	"context"
	"time"
)

// HoldingsStore is the persistence boundary for holdings.
// The reconciliation job only needs ListHoldings and UpdateCurrentPrice; the
// CRUD methods back the holdings API.
type HoldingsStore interface {
	ListHoldings(ctx context.Context, filter HoldingFilter) ([]Holding, error)
	UpdateCurrentPrice(ctx context.Context, id string, price float64, at time.Time) error

	Create(ctx context.Context, h Holding) error
	GetByID(ctx context.Context, userID, id string) (*Holding, error)
	Update(ctx context.Context, h Holding) error
	Delete(ctx context.Context, userID, id string) error
}

// QuoteSource fetches a single quote from an external market data provider.
// Implementations report failures as values, never as panics.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) QuoteResult
}

// PriceFetcher resolves many symbols to prices, omitting those that failed
type PriceFetcher interface {
	FetchPrices(ctx context.Context, symbols []string) map[string]float64
}
