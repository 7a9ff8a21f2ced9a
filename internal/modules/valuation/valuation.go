// Package valuation computes holding and portfolio metrics from stored holdings.
// Everything here is pure: no I/O, no clock, safe to call from any goroutine.
package valuation

import (
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// PaletteSize is the number of distinct sector colours on the dashboard
const PaletteSize = 5

// Palette holds the dashboard sector colours, indexed by SectorAllocation.ColorIndex
var Palette = [PaletteSize]string{
	"hsl(239, 84%, 67%)",
	"hsl(142, 71%, 45%)",
	"hsl(38, 92%, 50%)",
	"hsl(280, 65%, 55%)",
	"hsl(218, 11%, 55%)",
}

var hundred = decimal.NewFromInt(100)

// HoldingValuation is a holding plus its derived metrics
type HoldingValuation struct {
	domain.Holding
	Value      float64 `json:"value"`
	Invested   float64 `json:"invested"`
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnl_percent"`
}

// SectorAllocation is one sector's share of portfolio value
type SectorAllocation struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Value      float64 `json:"value"`
	Percent    int     `json:"percent"`
	ColorIndex int     `json:"color_index"`
}

// CategoryAllocation is one instrument category's share of portfolio value
type CategoryAllocation struct {
	Category domain.InstrumentCategory `json:"category"`
	Label    string                    `json:"label"`
	Value    float64                   `json:"value"`
	Percent  float64                   `json:"percent"` // one decimal place
}

// PortfolioValuation aggregates a user's holdings
type PortfolioValuation struct {
	Holdings         []HoldingValuation `json:"holdings"`
	SectorAllocation []SectorAllocation `json:"sector_allocation"`
	TotalValue       float64            `json:"total_value"`
	TotalInvested    float64            `json:"total_invested"`
	TotalPnL         float64            `json:"total_pnl"`
	TotalPnLPercent  float64            `json:"total_pnl_percent"`
}

type amounts struct {
	value    decimal.Decimal
	invested decimal.Decimal
}

func holdingAmounts(h domain.Holding) amounts {
	qty := decimal.NewFromFloat(h.Quantity)
	return amounts{
		value:    qty.Mul(decimal.NewFromFloat(h.CurrentPrice)),
		invested: qty.Mul(decimal.NewFromFloat(h.BuyPrice)),
	}
}

// percentOf returns part/whole*100, or zero when whole is not positive
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// ValueHolding computes value, invested amount and profit for one holding
func ValueHolding(h domain.Holding) HoldingValuation {
	a := holdingAmounts(h)
	pnl := a.value.Sub(a.invested)

	return HoldingValuation{
		Holding:    h,
		Value:      a.value.InexactFloat64(),
		Invested:   a.invested.InexactFloat64(),
		PnL:        pnl.InexactFloat64(),
		PnLPercent: percentOf(pnl, a.invested).InexactFloat64(),
	}
}

// ValuePortfolio values every holding and computes totals and sector allocation.
// Holdings keep their input order.
func ValuePortfolio(holdings []domain.Holding) PortfolioValuation {
	valuations := make([]HoldingValuation, 0, len(holdings))
	totalValue := decimal.Zero
	totalInvested := decimal.Zero

	for _, h := range holdings {
		a := holdingAmounts(h)
		totalValue = totalValue.Add(a.value)
		totalInvested = totalInvested.Add(a.invested)
		valuations = append(valuations, ValueHolding(h))
	}

	totalPnL := totalValue.Sub(totalInvested)

	return PortfolioValuation{
		Holdings:         valuations,
		SectorAllocation: Sectors(valuations),
		TotalValue:       totalValue.InexactFloat64(),
		TotalInvested:    totalInvested.InexactFloat64(),
		TotalPnL:         totalPnL.InexactFloat64(),
		TotalPnLPercent:  percentOf(totalPnL, totalInvested).InexactFloat64(),
	}
}

// Sectors groups valuations by sector in first-seen order. Each percent is
// rounded on its own, so the sum may land on 99 or 101. Empty when the total is zero.
func Sectors(valuations []HoldingValuation) []SectorAllocation {
	var order []string
	bySector := make(map[string]decimal.Decimal)
	total := decimal.Zero

	for _, v := range valuations {
		name := v.SectorName()
		value := holdingAmounts(v.Holding).value
		if _, ok := bySector[name]; !ok {
			order = append(order, name)
		}
		bySector[name] = bySector[name].Add(value)
		total = total.Add(value)
	}

	if !total.IsPositive() {
		return []SectorAllocation{}
	}

	out := make([]SectorAllocation, 0, len(order))
	for i, name := range order {
		value := bySector[name]
		out = append(out, SectorAllocation{
			Name:       name,
			Value:      value.InexactFloat64(),
			Percent:    int(percentOf(value, total).Round(0).IntPart()),
			ColorIndex: i % PaletteSize,
			Color:      Palette[i%PaletteSize],
		})
	}
	return out
}

// CategoryBreakdown groups valuations by instrument category in first-seen order.
// Percent is rounded to one decimal place.
func CategoryBreakdown(valuations []HoldingValuation) []CategoryAllocation {
	var order []domain.InstrumentCategory
	byCategory := make(map[domain.InstrumentCategory]decimal.Decimal)
	total := decimal.Zero

	for _, v := range valuations {
		value := holdingAmounts(v.Holding).value
		if _, ok := byCategory[v.Category]; !ok {
			order = append(order, v.Category)
		}
		byCategory[v.Category] = byCategory[v.Category].Add(value)
		total = total.Add(value)
	}

	out := make([]CategoryAllocation, 0, len(order))
	for _, c := range order {
		value := byCategory[c]
		out = append(out, CategoryAllocation{
			Category: c,
			Label:    c.Label(),
			Value:    value.InexactFloat64(),
			Percent:  percentOf(value, total).Round(1).InexactFloat64(),
		})
	}
	return out
}

// Performers returns up to n best and n worst holdings by PnLPercent.
// Ties keep input order. The two lists overlap when there are fewer than 2n holdings.
func Performers(valuations []HoldingValuation, n int) (top, bottom []HoldingValuation) {
	if n <= 0 || len(valuations) == 0 {
		return nil, nil
	}

	ranked := make([]HoldingValuation, len(valuations))
	copy(ranked, valuations)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PnLPercent > ranked[j].PnLPercent
	})

	k := min(n, len(ranked))
	top = append(top, ranked[:k]...)
	for i := len(ranked) - 1; i >= len(ranked)-k; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}
