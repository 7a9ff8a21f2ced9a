// Package insights turns a valued portfolio into a short list of advisory
// insights produced by a text generator.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// Insight types
const (
	TypeAlert       = "alert"
	TypeSuggestion  = "suggestion"
	TypeOpportunity = "opportunity"
	TypeInfo        = "info"
)

// Insight priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Insight is one advisory item shown on the dashboard
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Source tells where a set of insights came from
type Source string

const (
	SourceGenerated Source = "generated"
	SourceStatic    Source = "static"
	SourceFallback  Source = "fallback"
)

// Result is returned by Service.Generate
type Result struct {
	Insights []Insight `json:"insights"`
	Source   Source    `json:"source"`
	Error    string    `json:"error,omitempty"`
}

var (
	// EmptyPortfolioInsight is returned without calling the generator
	EmptyPortfolioInsight = Insight{
		Type:        TypeInfo,
		Title:       "Start Your Investment Journey",
		Description: "Add your first holdings to get personalized AI-powered portfolio insights and recommendations.",
		Priority:    PriorityLow,
	}

	// UnparsableInsight replaces a reply that holds no usable JSON array
	UnparsableInsight = Insight{
		Type:        TypeSuggestion,
		Title:       "Portfolio Review",
		Description: "Your portfolio is being analyzed. Check back in a moment for personalized insights.",
		Priority:    PriorityLow,
	}

	// UnavailableInsight is returned when the generator fails or is not configured
	UnavailableInsight = Insight{
		Type:        TypeAlert,
		Title:       "Analysis Unavailable",
		Description: "Unable to analyze portfolio at this time. Please try again later.",
		Priority:    PriorityLow,
	}
)

// PerformerCount is how many best and worst holdings the summary lists
const PerformerCount = 3

// SystemPrompt instructs the generator how to answer
const SystemPrompt = `You are an expert Indian financial advisor AI. Analyze the user's portfolio and provide 3 actionable insights.

Rules:
1. Speak in simple, friendly Hindi-English mix that Indian retail investors understand
2. Use ₹ for amounts and explain in lakhs/crores when appropriate
3. Focus on: diversification gaps, concentration risks, rebalancing needs, and opportunities
4. Be specific with numbers from their portfolio
5. Each insight should have a clear action item
6. Consider Indian market context (NSE/BSE, Indian sectors, tax rules like LTCG/STCG)

Respond ONLY with a valid JSON array of exactly 3 insights in this format:
[
  {
    "type": "alert|suggestion|opportunity",
    "title": "Brief title (max 5 words)",
    "description": "Clear explanation with specific numbers and action (2-3 sentences max)",
    "priority": "high|medium|low"
  }
]

Priority guide:
- high: Immediate action needed (concentration risk >40%, severe imbalance)
- medium: Should address soon (minor rebalancing, missed opportunities)
- low: Good to know (tax tips, small optimizations)`

var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// PortfolioLoader loads a user's valued portfolio
type PortfolioLoader interface {
	Portfolio(ctx context.Context, userID string) (*valuation.PortfolioValuation, error)
}

// Service generates insights for a user's portfolio
type Service struct {
	portfolios PortfolioLoader
	generator  Generator
	log        zerolog.Logger
}

// NewService creates a new insights service. generator may be nil, in which
// case every non-empty portfolio gets the unavailable fallback.
func NewService(portfolios PortfolioLoader, generator Generator, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		generator:  generator,
		log:        log.With().Str("service", "insights").Logger(),
	}
}

// Generate builds insights for one user. Only a failure to load holdings is
// returned as an error; generator problems degrade to a fallback insight.
func (s *Service) Generate(ctx context.Context, userID string) (*Result, error) {
	portfolio, err := s.portfolios.Portfolio(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	if len(portfolio.Holdings) == 0 {
		return &Result{Insights: []Insight{EmptyPortfolioInsight}, Source: SourceStatic}, nil
	}

	if s.generator == nil {
		return &Result{
			Insights: []Insight{UnavailableInsight},
			Source:   SourceFallback,
			Error:    "insights generator is not configured",
		}, nil
	}

	reply, err := s.generator.Generate(ctx, SystemPrompt, BuildSummary(portfolio))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Insight generation failed")
		return &Result{
			Insights: []Insight{UnavailableInsight},
			Source:   SourceFallback,
			Error:    err.Error(),
		}, nil
	}

	insights, err := ParseInsights(reply)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to parse generator reply")
		return &Result{Insights: []Insight{UnparsableInsight}, Source: SourceFallback}, nil
	}

	return &Result{Insights: insights, Source: SourceGenerated}, nil
}

// ParseInsights extracts the JSON array of insights from a generator reply,
// tolerating surrounding prose and markdown fences
func ParseInsights(reply string) ([]Insight, error) {
	match := jsonArrayPattern.FindString(reply)
	if match == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var insights []Insight
	if err := json.Unmarshal([]byte(match), &insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("response contained no insights")
	}
	return insights, nil
}

// BuildSummary renders the portfolio as the user prompt for the generator
func BuildSummary(p *valuation.PortfolioValuation) string {
	var sb strings.Builder

	sb.WriteString("Portfolio Analysis Request:\n\n")
	fmt.Fprintf(&sb, "**Total Portfolio Value:** %s\n", valuation.FormatAmount(p.TotalValue))
	fmt.Fprintf(&sb, "**Total Invested:** %s\n", valuation.FormatAmount(p.TotalInvested))
	fmt.Fprintf(&sb, "**Overall Returns:** %s\n\n", valuation.FormatPercent(p.TotalPnLPercent, 2))

	fmt.Fprintf(&sb, "**Holdings (%d assets):**\n", len(p.Holdings))
	for _, h := range p.Holdings {
		sector := "Unspecified"
		if h.Sector != nil && strings.TrimSpace(*h.Sector) != "" {
			sector = strings.TrimSpace(*h.Sector)
		}
		fmt.Fprintf(&sb, "- %s (%s): %s | %s | Sector: %s | Returns: %s\n",
			h.Name, h.Symbol, valuation.FormatAmount(h.Value), h.Category.Label(), sector,
			valuation.FormatPercent(h.PnLPercent, 2))
	}

	sb.WriteString("\n**Sector Allocation:**\n")
	for _, s := range p.SectorAllocation {
		fmt.Fprintf(&sb, "- %s: %d%%\n", s.Name, s.Percent)
	}

	sb.WriteString("\n**Asset Type Breakdown:**\n")
	for _, c := range valuation.CategoryBreakdown(p.Holdings) {
		fmt.Fprintf(&sb, "- %s: %s (%.1f%%)\n", c.Label, valuation.FormatAmount(c.Value), c.Percent)
	}

	top, bottom := valuation.Performers(p.Holdings, PerformerCount)
	writePerformers(&sb, "Top Performers", top)
	writePerformers(&sb, "Bottom Performers", bottom)

	return sb.String()
}

func writePerformers(sb *strings.Builder, title string, list []valuation.HoldingValuation) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n**%s:**\n", title)
	for _, h := range list {
		fmt.Fprintf(sb, "- %s: %s\n", h.Symbol, valuation.FormatPercent(h.PnLPercent, 2))
	}
}
