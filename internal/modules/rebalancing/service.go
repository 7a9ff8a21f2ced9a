package rebalancing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/insights"
	"github.com/rs/zerolog"
)

// summaryPrompt asks for a short cross-portfolio summary; %s is the JSON of
// portfolios needing attention
const summaryPrompt = `You are a portfolio analyst. Summarize these rebalancing recommendations in a brief, actionable format:

%s

Provide a 2-3 sentence summary of the key rebalancing themes across all portfolios.`

// Report is the result of checking every portfolio
type Report struct {
	CheckedAt                  time.Time  `json:"checked_at"`
	Portfolios                 []Analysis `json:"portfolios"` // only those needing attention
	AISummary                  string     `json:"ai_summary,omitempty"`
	PortfoliosAnalyzed         int        `json:"portfolios_analyzed"`
	PortfoliosNeedingAttention int        `json:"portfolios_needing_attention"`
}

// Service runs rebalance checks over stored holdings
type Service struct {
	store     domain.HoldingsStore
	generator insights.Generator
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new rebalancing service. generator may be nil, which
// disables the AI summary.
func NewService(store domain.HoldingsStore, generator insights.Generator, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		now:       time.Now,
		log:       log.With().Str("service", "rebalancing").Logger(),
	}
}

// CheckUser analyzes one user's portfolio across all categories
func (s *Service) CheckUser(ctx context.Context, userID string) (*Analysis, error) {
	holdings, err := s.store.ListHoldings(ctx, domain.HoldingFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	analysis := Analyze(userID, holdings)
	return &analysis, nil
}

// CheckAll analyzes every user's portfolio. Users are visited in the order
// their first holding is listed.
func (s *Service) CheckAll(ctx context.Context) (*Report, error) {
	holdings, err := s.store.ListHoldings(ctx, domain.HoldingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	var users []string
	byUser := make(map[string][]domain.Holding)
	for _, h := range holdings {
		if _, ok := byUser[h.UserID]; !ok {
			users = append(users, h.UserID)
		}
		byUser[h.UserID] = append(byUser[h.UserID], h)
	}

	report := &Report{
		CheckedAt:          s.now().UTC(),
		Portfolios:         []Analysis{},
		PortfoliosAnalyzed: len(users),
	}

	for _, userID := range users {
		analysis := Analyze(userID, byUser[userID])
		if !analysis.NeedsAttention() {
			continue
		}
		report.Portfolios = append(report.Portfolios, analysis)
		s.log.Info().
			Str("user_id", userID).
			Int("recommendations", len(analysis.Recommendations)).
			Msg("Portfolio needs rebalancing attention")
	}
	report.PortfoliosNeedingAttention = len(report.Portfolios)

	if s.generator != nil && len(report.Portfolios) > 0 {
		report.AISummary = s.summarize(ctx, report.Portfolios)
	}

	return report, nil
}

// summarize asks the generator for a summary; failures are logged and yield ""
func (s *Service) summarize(ctx context.Context, portfolios []Analysis) string {
	type entry struct {
		UserID          string   `json:"user_id"`
		Recommendations []string `json:"recommendations"`
	}
	entries := make([]entry, 0, len(portfolios))
	for _, p := range portfolios {
		e := entry{UserID: p.UserID}
		for _, r := range p.Recommendations {
			e.Recommendations = append(e.Recommendations, r.Message)
		}
		entries = append(entries, e)
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode recommendations for summary")
		return ""
	}

	summary, err := s.generator.Generate(ctx, "", fmt.Sprintf(summaryPrompt, payload))
	if err != nil {
		s.log.Warn().Err(err).Msg("AI summary failed")
		return ""
	}
	return summary
}
