package testing

import (
	"time"

	"github.com/aristath/folio/internal/domain"
)

// FixtureUserID owns every holding returned by NewHoldingFixtures
const FixtureUserID = "user-fixture"

// NewHoldingFixtures returns a small mixed portfolio: two IT stocks, a banking
// ETF, a mutual fund and an unsectored debt instrument
func NewHoldingFixtures() []domain.Holding {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.Holding{
		{
			ID:           "h-tcs",
			UserID:       FixtureUserID,
			Symbol:       "TCS",
			Name:         "Tata Consultancy Services",
			Category:     domain.CategoryStock,
			Quantity:     10,
			BuyPrice:     3000,
			CurrentPrice: 3300,
			Sector:       strPtr("IT"),
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           "h-infy",
			UserID:       FixtureUserID,
			Symbol:       "INFY",
			Name:         "Infosys",
			Category:     domain.CategoryStock,
			Quantity:     20,
			BuyPrice:     1500,
			CurrentPrice: 1400,
			Sector:       strPtr("IT"),
			CreatedAt:    now.Add(time.Minute),
			UpdatedAt:    now.Add(time.Minute),
		},
		{
			ID:           "h-bank",
			UserID:       FixtureUserID,
			Symbol:       "BANKBEES",
			Name:         "Nippon India Bank ETF",
			Category:     domain.CategoryETF,
			Quantity:     50,
			BuyPrice:     450,
			CurrentPrice: 480,
			Sector:       strPtr("Banking"),
			CreatedAt:    now.Add(2 * time.Minute),
			UpdatedAt:    now.Add(2 * time.Minute),
		},
		{
			ID:           "h-mf",
			UserID:       FixtureUserID,
			Symbol:       "PPFAS",
			Name:         "Parag Parikh Flexi Cap",
			Category:     domain.CategoryMutualFund,
			Quantity:     100,
			BuyPrice:     60,
			CurrentPrice: 72,
			Sector:       strPtr("Diversified"),
			CreatedAt:    now.Add(3 * time.Minute),
			UpdatedAt:    now.Add(3 * time.Minute),
		},
		{
			ID:           "h-fd",
			UserID:       FixtureUserID,
			Symbol:       "SBIFD",
			Name:         "SBI Fixed Deposit",
			Category:     domain.CategoryDebt,
			Quantity:     1,
			BuyPrice:     100000,
			CurrentPrice: 100000,
			CreatedAt:    now.Add(4 * time.Minute),
			UpdatedAt:    now.Add(4 * time.Minute),
		},
	}
}

func strPtr(s string) *string {
	return &s
}
