// Package rebalancing flags concentration, drawdown and diversity problems in
// portfolios and summarizes them for the weekly check.
package rebalancing

import (
	"fmt"
	"math"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/valuation"
	"gonum.org/v1/gonum/floats"
)

// Thresholds, in percent
const (
	SectorConcentrationLimit  = 40.0
	HoldingConcentrationLimit = 25.0
	DrawdownLimit             = -20.0
)

// MinSectors is the diversity floor applied once a portfolio has MinSectors holdings
const MinSectors = 3

// Kind classifies a recommendation
type Kind string

const (
	KindSectorConcentration  Kind = "sector_concentration"
	KindHoldingConcentration Kind = "holding_concentration"
	KindDrawdown             Kind = "drawdown"
	KindLowDiversity         Kind = "low_diversity"
)

// Recommendation is one rebalancing suggestion
type Recommendation struct {
	Kind    Kind    `json:"kind"`
	Subject string  `json:"subject"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Analysis is the rebalance check result for one portfolio
type Analysis struct {
	Recommendations []Recommendation `json:"recommendations"`
	UserID          string           `json:"user_id"`
	TotalValue      string           `json:"total_value"`
	HoldingsCount   int              `json:"holdings_count"`
	SectorCount     int              `json:"sector_count"`
	// Herfindahl is the sum of squared holding weights, from 1/n (even) to 1 (single holding)
	Herfindahl        float64 `json:"herfindahl"`
	EffectiveHoldings float64 `json:"effective_holdings"`
}

// NeedsAttention reports whether any recommendation was raised
func (a Analysis) NeedsAttention() bool {
	return len(a.Recommendations) > 0
}

// Analyze runs every rule over one user's holdings. Checks run in a fixed
// order: sector concentration, holding concentration, drawdown, diversity.
func Analyze(userID string, holdings []domain.Holding) Analysis {
	portfolio := valuation.ValuePortfolio(holdings)

	values := make([]float64, len(portfolio.Holdings))
	for i, h := range portfolio.Holdings {
		values[i] = h.Value
	}

	sectorOrder, sectorValues := groupBySector(portfolio.Holdings)

	analysis := Analysis{
		Recommendations: []Recommendation{},
		UserID:          userID,
		TotalValue:      valuation.FormatAmount(portfolio.TotalValue),
		HoldingsCount:   len(holdings),
		SectorCount:     len(sectorOrder),
	}

	total := floats.Sum(values)
	if total > 0 {
		weights := make([]float64, len(values))
		copy(weights, values)
		floats.Scale(1/total, weights)
		analysis.Herfindahl = round(floats.Dot(weights, weights), 4)
		if analysis.Herfindahl > 0 {
			analysis.EffectiveHoldings = round(1/analysis.Herfindahl, 2)
		}

		for _, name := range sectorOrder {
			pct := sectorValues[name] / total * 100
			if pct > SectorConcentrationLimit {
				analysis.add(KindSectorConcentration, name, pct,
					"High concentration in %s (%.1f%%). Consider diversifying.", name, pct)
			}
		}

		for _, h := range portfolio.Holdings {
			pct := h.Value / total * 100
			if pct > HoldingConcentrationLimit {
				analysis.add(KindHoldingConcentration, h.Symbol, pct,
					"%s represents %.1f%% of portfolio. Consider trimming.", h.Symbol, pct)
			}
		}
	}

	for _, h := range portfolio.Holdings {
		if h.PnLPercent < DrawdownLimit {
			analysis.add(KindDrawdown, h.Symbol, h.PnLPercent,
				"%s is down %.1f%%. Review for potential exit.", h.Symbol, math.Abs(h.PnLPercent))
		}
	}

	if len(sectorOrder) < MinSectors && len(holdings) >= MinSectors {
		n := len(sectorOrder)
		analysis.add(KindLowDiversity, "", float64(n),
			"Portfolio spans only %d sector(s). Consider adding more sectors.", n)
	}

	return analysis
}

func (a *Analysis) add(kind Kind, subject string, pct float64, format string, args ...interface{}) {
	a.Recommendations = append(a.Recommendations, Recommendation{
		Kind:    kind,
		Subject: subject,
		Percent: round(pct, 1),
		Message: fmt.Sprintf(format, args...),
	})
}

func groupBySector(valuations []valuation.HoldingValuation) ([]string, map[string]float64) {
	var order []string
	values := make(map[string]float64)
	for _, v := range valuations {
		name := v.SectorName()
		if _, ok := values[name]; !ok {
			order = append(order, name)
		}
		values[name] += v.Value
	}
	return order, values
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
