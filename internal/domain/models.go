// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// InstrumentCategory represents the kind of instrument a holding is
type InstrumentCategory string

const (
	// CategoryStock represents individual listed shares
	CategoryStock InstrumentCategory = "stock"
	// CategoryMutualFund represents mutual fund units
	CategoryMutualFund InstrumentCategory = "mutual_fund"
	// CategoryETF represents Exchange Traded Funds
	CategoryETF InstrumentCategory = "etf"
	// CategoryDebt represents bonds, deposits and other debt instruments
	CategoryDebt InstrumentCategory = "debt"
)

// Categories lists every supported category in display order
var Categories = []InstrumentCategory{CategoryStock, CategoryMutualFund, CategoryETF, CategoryDebt}

// QuotedCategories are the categories whose prices come from the exchange quote source
var QuotedCategories = []InstrumentCategory{CategoryStock, CategoryETF}

// Valid reports whether c is a known category
func (c InstrumentCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human readable category name
func (c InstrumentCategory) Label() string {
	switch c {
	case CategoryStock:
		return "Stocks"
	case CategoryMutualFund:
		return "Mutual Funds"
	case CategoryETF:
		return "ETFs"
	case CategoryDebt:
		return "Debt"
	default:
		return string(c)
	}
}

// OthersSector is the bucket used for holdings without a sector
const OthersSector = "Others"

// Holding represents a user's position in one instrument
type Holding struct {
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Sector       *string            `json:"sector"`
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Symbol       string             `json:"symbol"`
	Name         string             `json:"name"`
	Category     InstrumentCategory `json:"category"`
	Quantity     float64            `json:"quantity"`
	BuyPrice     float64            `json:"buy_price"`
	CurrentPrice float64            `json:"current_price"`
}

// SectorName returns the sector used for aggregation, "Others" when unset
func (h Holding) SectorName() string {
	if h.Sector == nil || strings.TrimSpace(*h.Sector) == "" {
		return OthersSector
	}
	return strings.TrimSpace(*h.Sector)
}

// Normalize trims text fields and upper-cases the symbol
func (h *Holding) Normalize() {
	h.Symbol = NormalizeTicker(h.Symbol)
	h.Name = strings.TrimSpace(h.Name)
	h.Category = InstrumentCategory(strings.ToLower(strings.TrimSpace(string(h.Category))))
	if h.Sector != nil {
		s := strings.TrimSpace(*h.Sector)
		if s == "" {
			h.Sector = nil
		} else {
			h.Sector = &s
		}
	}
}

// Validate checks the holding invariants
func (h Holding) Validate() error {
	if strings.TrimSpace(h.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidHolding)
	}
	if strings.TrimSpace(h.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidHolding)
	}
	if !h.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidHolding, h.Category)
	}
	if h.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidHolding)
	}
	if h.BuyPrice <= 0 {
		return fmt.Errorf("%w: buy_price must be positive", ErrInvalidHolding)
	}
	if h.CurrentPrice <= 0 {
		return fmt.Errorf("%w: current_price must be positive", ErrInvalidHolding)
	}
	return nil
}

// HoldingFilter narrows ListHoldings. Empty fields match everything.
type HoldingFilter struct {
	UserID     string
	Categories []InstrumentCategory
}

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
