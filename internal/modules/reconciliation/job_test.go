package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	testingpkg "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []events.EventData
}

func (p *recordingPublisher) Emit(module string, data events.EventData) {
	p.events = append(p.events, data)
}

func (p *recordingPublisher) priceUpdates() []*events.PriceUpdatedData {
	var out []*events.PriceUpdatedData
	for _, e := range p.events {
		if d, ok := e.(*events.PriceUpdatedData); ok {
			out = append(out, d)
		}
	}
	return out
}

// stateProbe records the job state observed while prices are being fetched
type stateProbe struct {
	inner *testingpkg.StaticPriceFetcher
	job   *Job
	seen  []State
}

func (p *stateProbe) FetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	p.seen = append(p.seen, p.job.State())
	return p.inner.FetchPrices(ctx, symbols)
}

func newJob(store domain.HoldingsStore, fetcher domain.PriceFetcher) (*Job, *recordingPublisher) {
	pub := &recordingPublisher{}
	job := NewJob(store, fetcher, pub, zerolog.Nop())
	fixed := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }
	return job, pub
}

func TestReconcile_UpdatesChangedQuotedHoldings(t *testing.T) {
	store := testingpkg.NewMockHoldingsStore(testingpkg.NewHoldingFixtures()...)
	fetcher := &testingpkg.StaticPriceFetcher{Prices: map[string]float64{
		"TCS":   3400, // changed
		"INFY":  1400, // unchanged
		"PPFAS": 99,   // mutual funds are never refreshed
	}}
	job, pub := newJob(store, fetcher)

	report, err := job.Reconcile(context.Background(), AllUsers())
	require.NoError(t, err)

	assert.Equal(t, TriggerSchedule, report.Trigger)
	assert.Equal(t, 3, report.HoldingsLoaded, "only stock and etf holdings")
	assert.Equal(t, 3, report.SymbolsProcessed)
	assert.Equal(t, 2, report.PricesFetched)
	assert.Equal(t, 1, report.HoldingsUpdated)
	assert.Empty(t, report.Failures)

	tcs, _ := store.Holding("h-tcs")
	assert.Equal(t, 3400.0, tcs.CurrentPrice)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), tcs.UpdatedAt)

	bank, _ := store.Holding("h-bank")
	assert.Equal(t, 480.0, bank.CurrentPrice, "failed fetch leaves the stored price")

	mf, _ := store.Holding("h-mf")
	assert.Equal(t, 72.0, mf.CurrentPrice)

	require.Len(t, store.Updates, 1)
	require.Len(t, fetcher.Calls, 1)
	assert.NotContains(t, fetcher.Calls[0], "PPFAS")

	updates := pub.priceUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "h-tcs", updates[0].HoldingID)
	assert.Equal(t, 3300.0, updates[0].OldPrice)
	assert.Equal(t, 3400.0, updates[0].NewPrice)

	assert.Equal(t, StateIdle, job.State())
	assert.Same(t, report, job.LastReport())
}

func TestReconcile_LoadFailureMarksFailed(t *testing.T) {
	store := testingpkg.NewMockHoldingsStore(testingpkg.NewHoldingFixtures()...)
	store.ListErr = errors.New("database is locked")
	fetcher := &testingpkg.StaticPriceFetcher{}
	job, pub := newJob(store, fetcher)

	report, err := job.Reconcile(context.Background(), AllUsers())

	assert.Nil(t, report)
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, StateFailed, job.State())
	assert.Nil(t, job.LastReport())
	assert.Empty(t, fetcher.Calls, "no fetches after a failed load")
	assert.Empty(t, store.Updates)
	assert.Empty(t, pub.events)
}

func TestReconcile_PersistenceFailureDoesNotAbortOthers(t *testing.T) {
	store := testingpkg.NewMockHoldingsStore(testingpkg.NewHoldingFixtures()...)
	store.UpdateErrs["h-tcs"] = errors.New("disk I/O error")
	fetcher := &testingpkg.StaticPriceFetcher{Prices: map[string]float64{
		"TCS":      3400,
		"INFY":     1450,
		"BANKBEES": 500,
	}}
	job, pub := newJob(store, fetcher)

	report, err := job.Reconcile(context.Background(), AllUsers())
	require.NoError(t, err)

	assert.Equal(t, 2, report.HoldingsUpdated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, UpdateFailure{HoldingID: "h-tcs", Symbol: "TCS", Error: "disk I/O error"}, report.Failures[0])

	infy, _ := store.Holding("h-infy")
	assert.Equal(t, 1450.0, infy.CurrentPrice)
	bank, _ := store.Holding("h-bank")
	assert.Equal(t, 500.0, bank.CurrentPrice)

	assert.Len(t, pub.priceUpdates(), 2)
	assert.Equal(t, StateIdle, job.State())
}

func TestReconcile_ChunksSymbolsByBatchCap(t *testing.T) {
	var holdings []domain.Holding
	prices := make(map[string]float64)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		symbol := fmt.Sprintf("S%03d", i)
		holdings = append(holdings, domain.Holding{
			ID:           "h-" + symbol,
			UserID:       "u1",
			Symbol:       symbol,
			Category:     domain.CategoryStock,
			Quantity:     1,
			BuyPrice:     10,
			CurrentPrice: 10,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
		prices[symbol] = 11
	}
	store := testingpkg.NewMockHoldingsStore(holdings...)
	fetcher := &testingpkg.StaticPriceFetcher{Prices: prices}
	job, _ := newJob(store, fetcher)

	report, err := job.Reconcile(context.Background(), AllUsers())
	require.NoError(t, err)

	require.Len(t, fetcher.Calls, 3)
	assert.Len(t, fetcher.Calls[0], 50)
	assert.Len(t, fetcher.Calls[1], 50)
	assert.Len(t, fetcher.Calls[2], 20)
	assert.Equal(t, 120, report.PricesFetched)
	assert.Equal(t, 120, report.HoldingsUpdated)
}

func TestReconcile_UserScopeAndSharedSymbols(t *testing.T) {
	mine := domain.Holding{ID: "a", UserID: "alice", Symbol: "TCS", Category: domain.CategoryStock, Quantity: 1, BuyPrice: 1, CurrentPrice: 1}
	mineToo := domain.Holding{ID: "b", UserID: "alice", Symbol: "tcs", Category: domain.CategoryETF, Quantity: 1, BuyPrice: 1, CurrentPrice: 1}
	theirs := domain.Holding{ID: "c", UserID: "bob", Symbol: "TCS", Category: domain.CategoryStock, Quantity: 1, BuyPrice: 1, CurrentPrice: 1}

	store := testingpkg.NewMockHoldingsStore(mine, mineToo, theirs)
	fetcher := &testingpkg.StaticPriceFetcher{Prices: map[string]float64{"TCS": 2}}
	job, _ := newJob(store, fetcher)

	report, err := job.Reconcile(context.Background(), UserScope("alice"))
	require.NoError(t, err)

	assert.Equal(t, TriggerClient, report.Trigger)
	assert.Equal(t, "alice", report.UserID)
	assert.Equal(t, 1, report.SymbolsProcessed, "one symbol shared by two holdings")
	assert.Equal(t, 2, report.HoldingsUpdated)

	bob, _ := store.Holding("c")
	assert.Equal(t, 1.0, bob.CurrentPrice, "other users are untouched")
}

func TestReconcile_StatesDuringRun(t *testing.T) {
	store := testingpkg.NewMockHoldingsStore(testingpkg.NewHoldingFixtures()...)
	probe := &stateProbe{inner: &testingpkg.StaticPriceFetcher{}}
	job, _ := newJob(store, probe)
	probe.job = job

	assert.Equal(t, StateIdle, job.State())

	_, err := job.Reconcile(context.Background(), AllUsers())
	require.NoError(t, err)

	assert.Equal(t, []State{StateFetchingPrices}, probe.seen)
	assert.Equal(t, StateIdle, job.State())
}

func TestReconcile_RecoversAfterFailure(t *testing.T) {
	store := testingpkg.NewMockHoldingsStore(testingpkg.NewHoldingFixtures()...)
	store.ListErr = errors.New("transient")
	job, _ := newJob(store, &testingpkg.StaticPriceFetcher{})

	_, err := job.Reconcile(context.Background(), AllUsers())
	require.Error(t, err)
	assert.Equal(t, StateFailed, job.State())

	store.ListErr = nil
	require.NoError(t, job.Run())
	assert.Equal(t, StateIdle, job.State())
	assert.Equal(t, TriggerSchedule, job.LastReport().Trigger)
}

func TestJob_Name(t *testing.T) {
	job := NewJob(nil, nil, nil, zerolog.Nop())
	assert.Equal(t, "price_reconciliation", job.Name())
}
