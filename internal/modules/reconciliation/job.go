// Package reconciliation refreshes stored holding prices from the quote source.
package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/quotes"
	"github.com/rs/zerolog"
)

// JobName is the scheduler name of the reconciliation job
const JobName = "price_reconciliation"

// DefaultRunTimeout bounds a scheduled run
const DefaultRunTimeout = 4 * time.Minute

// State is the job's position in its run cycle
type State string

const (
	StateIdle              State = "idle"
	StateLoadingHoldings   State = "loading_holdings"
	StateFetchingPrices    State = "fetching_prices"
	StatePersistingUpdates State = "persisting_updates"
	StateFailed            State = "failed"
)

// Trigger records who started a run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerClient   Trigger = "client"
	TriggerCLI      Trigger = "cli"
)

// Scope selects which holdings a run covers. An empty UserID means all users.
type Scope struct {
	UserID  string
	Trigger Trigger
}

// AllUsers is the scope of a scheduled run
func AllUsers() Scope {
	return Scope{Trigger: TriggerSchedule}
}

// UserScope is the scope of a client-triggered refresh for one user
func UserScope(userID string) Scope {
	return Scope{UserID: userID, Trigger: TriggerClient}
}

// UpdateFailure records one holding whose price could not be persisted
type UpdateFailure struct {
	HoldingID string `json:"holding_id"`
	Symbol    string `json:"symbol"`
	Error     string `json:"error"`
}

// Report summarizes one reconciliation run
type Report struct {
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	Failures         []UpdateFailure `json:"failures"`
	Trigger          Trigger         `json:"trigger"`
	UserID           string          `json:"user_id,omitempty"`
	HoldingsLoaded   int             `json:"holdings_loaded"`
	SymbolsProcessed int             `json:"symbols_processed"`
	PricesFetched    int             `json:"prices_fetched"`
	HoldingsUpdated  int             `json:"holdings_updated"`
}

// Publisher receives events for changed prices
type Publisher interface {
	Emit(module string, data events.EventData)
}

// Job is the price reconciliation job
type Job struct {
	store      domain.HoldingsStore
	fetcher    domain.PriceFetcher
	publisher  Publisher
	lastReport *Report
	now        func() time.Time
	log        zerolog.Logger
	state      State
	timeout    time.Duration
	mu         sync.RWMutex
}

// NewJob creates a new reconciliation job. publisher may be nil.
func NewJob(store domain.HoldingsStore, fetcher domain.PriceFetcher, publisher Publisher, log zerolog.Logger) *Job {
	return &Job{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("job", JobName).Logger(),
		state:     StateIdle,
		timeout:   DefaultRunTimeout,
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return JobName
}

// Run executes a scheduled reconciliation over all users
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.Reconcile(ctx, AllUsers())
	return err
}

// State returns the current run state
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// LastReport returns the report of the most recent completed run, or nil
func (j *Job) LastReport() *Report {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastReport
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Reconcile loads quoted holdings in scope, fetches their prices and persists
// every price that changed. It only fails when holdings cannot be loaded;
// individual write failures are collected in the report.
func (j *Job) Reconcile(ctx context.Context, scope Scope) (*Report, error) {
	report := &Report{
		StartedAt: j.now().UTC(),
		Trigger:   scope.Trigger,
		UserID:    scope.UserID,
		Failures:  []UpdateFailure{},
	}

	log := j.log.With().Str("trigger", string(scope.Trigger)).Str("user_id", scope.UserID).Logger()
	log.Info().Msg("Starting price reconciliation")

	// Step 1: load holdings (CRITICAL)
	j.setState(StateLoadingHoldings)
	holdings, err := j.store.ListHoldings(ctx, domain.HoldingFilter{
		UserID:     scope.UserID,
		Categories: domain.QuotedCategories,
	})
	if err != nil {
		j.setState(StateFailed)
		log.Error().Err(err).Msg("CRITICAL: Failed to load holdings")
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	report.HoldingsLoaded = len(holdings)

	// Step 2: fetch prices, 50 symbols per fetcher invocation
	j.setState(StateFetchingPrices)
	symbols := uniqueSymbols(holdings)
	report.SymbolsProcessed = len(symbols)

	prices := make(map[string]float64, len(symbols))
	for _, chunk := range quotes.Chunk(symbols, quotes.MaxBatchSize) {
		for symbol, price := range j.fetcher.FetchPrices(ctx, chunk) {
			prices[symbol] = price
		}
	}
	report.PricesFetched = len(prices)

	// Step 3: persist changed prices (non-critical per holding)
	j.setState(StatePersistingUpdates)
	for _, h := range holdings {
		price, ok := prices[domain.NormalizeTicker(h.Symbol)]
		if !ok || price == h.CurrentPrice {
			continue
		}

		if err := j.store.UpdateCurrentPrice(ctx, h.ID, price, j.now().UTC()); err != nil {
			log.Warn().Err(err).Str("holding_id", h.ID).Str("symbol", h.Symbol).Msg("Failed to persist price")
			report.Failures = append(report.Failures, UpdateFailure{
				HoldingID: h.ID,
				Symbol:    h.Symbol,
				Error:     err.Error(),
			})
			continue
		}

		report.HoldingsUpdated++
		j.emit(&events.PriceUpdatedData{
			HoldingID: h.ID,
			UserID:    h.UserID,
			Symbol:    h.Symbol,
			OldPrice:  h.CurrentPrice,
			NewPrice:  price,
		})
	}

	report.FinishedAt = j.now().UTC()

	j.mu.Lock()
	j.state = StateIdle
	j.lastReport = report
	j.mu.Unlock()

	j.emit(&events.ReconciliationCompletedData{
		Trigger:          string(report.Trigger),
		SymbolsProcessed: report.SymbolsProcessed,
		PricesFetched:    report.PricesFetched,
		HoldingsUpdated:  report.HoldingsUpdated,
		Failures:         len(report.Failures),
	})

	log.Info().
		Int("holdings", report.HoldingsLoaded).
		Int("symbols", report.SymbolsProcessed).
		Int("prices_fetched", report.PricesFetched).
		Int("updated", report.HoldingsUpdated).
		Int("failures", len(report.Failures)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Price reconciliation completed")

	return report, nil
}

func (j *Job) emit(data events.EventData) {
	if j.publisher != nil {
		j.publisher.Emit("reconciliation", data)
	}
}

// uniqueSymbols returns normalized symbols in first-seen order
func uniqueSymbols(holdings []domain.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	var symbols []string
	for _, h := range holdings {
		s := domain.NormalizeTicker(h.Symbol)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	return symbols
}
