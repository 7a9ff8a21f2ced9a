package quotes

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource answers from a price table and counts calls per symbol
type fakeSource struct {
	prices   map[string]float64
	calls    map[string]int
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
}

func newFakeSource(prices map[string]float64) *fakeSource {
	return &fakeSource{prices: prices, calls: make(map[string]int)}
}

func (s *fakeSource) FetchQuote(ctx context.Context, symbol string) domain.QuoteResult {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[symbol]++
	price, ok := s.prices[symbol]
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if !ok {
		return domain.NewUnavailableQuote(symbol, domain.ReasonHTTPStatus, "status 404")
	}
	return domain.NewAvailableQuote(domain.Quote{Symbol: symbol, Price: price})
}

func (s *fakeSource) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func TestFetchPrices_CacheHitsSkipSource(t *testing.T) {
	source := newFakeSource(map[string]float64{"TCS": 3300, "INFY": 1400, "WIPRO": 450})
	cache := NewCache(DefaultTTL)
	cache.Put("TCS", 3250)

	fetcher := NewFetcher(source, cache, zerolog.Nop())
	prices := fetcher.FetchPrices(context.Background(), []string{"TCS", "INFY", "WIPRO"})

	assert.Equal(t, map[string]float64{"TCS": 3250, "INFY": 1400, "WIPRO": 450}, prices)
	assert.Equal(t, 2, source.totalCalls(), "N symbols with M cached issue N-M calls")
	assert.Equal(t, 0, source.calls["TCS"])
}

func TestFetchPrices_IdempotentWithinTTL(t *testing.T) {
	source := newFakeSource(map[string]float64{"TCS": 3300, "INFY": 1400})
	fetcher := NewFetcher(source, NewCache(DefaultTTL), zerolog.Nop())

	first := fetcher.FetchPrices(context.Background(), []string{"TCS", "INFY"})
	callsAfterFirst := source.totalCalls()
	second := fetcher.FetchPrices(context.Background(), []string{"TCS", "INFY"})

	assert.Equal(t, first, second)
	assert.Equal(t, 2, callsAfterFirst)
	assert.Equal(t, callsAfterFirst, source.totalCalls(), "second call is served from cache")
}

func TestFetchPrices_RefetchesAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Minute)
	cache.SetClock(clock.Now)

	source := newFakeSource(map[string]float64{"TCS": 3300})
	fetcher := NewFetcher(source, cache, zerolog.Nop())

	fetcher.FetchPrices(context.Background(), []string{"TCS"})
	clock.Advance(time.Minute)
	fetcher.FetchPrices(context.Background(), []string{"TCS"})

	assert.Equal(t, 2, source.calls["TCS"])
}

func TestFetchPrices_FailuresOmittedAndNotCached(t *testing.T) {
	source := newFakeSource(map[string]float64{"TCS": 3300})
	cache := NewCache(DefaultTTL)
	fetcher := NewFetcher(source, cache, zerolog.Nop())

	prices := fetcher.FetchPrices(context.Background(), []string{"TCS", "DELISTED"})

	assert.Equal(t, map[string]float64{"TCS": 3300}, prices)
	_, cached := cache.Get("DELISTED")
	assert.False(t, cached)

	// A failed symbol is not retried within an invocation but is tried again next time
	fetcher.FetchPrices(context.Background(), []string{"DELISTED"})
	assert.Equal(t, 2, source.calls["DELISTED"])
}

func TestFetchPrices_BatchCap(t *testing.T) {
	prices := make(map[string]float64)
	var symbols []string
	for i := 0; i < 75; i++ {
		s := fmt.Sprintf("SYM%02d", i)
		symbols = append(symbols, s)
		prices[s] = float64(i + 1)
	}
	source := newFakeSource(prices)
	fetcher := NewFetcher(source, NewCache(DefaultTTL), zerolog.Nop())

	result := fetcher.FetchPrices(context.Background(), symbols)

	assert.Len(t, result, MaxBatchSize)
	assert.Equal(t, MaxBatchSize, source.totalCalls())
	assert.Contains(t, result, "SYM49")
	assert.NotContains(t, result, "SYM50")
	assert.NotContains(t, result, "SYM74")
}

func TestFetchPrices_CapDropsEvenCachedOverflow(t *testing.T) {
	var symbols []string
	cache := NewCache(DefaultTTL)
	for i := 0; i < 51; i++ {
		s := fmt.Sprintf("C%02d", i)
		symbols = append(symbols, s)
		cache.Put(s, 1)
	}
	fetcher := NewFetcher(newFakeSource(nil), cache, zerolog.Nop())

	result := fetcher.FetchPrices(context.Background(), symbols)

	assert.Len(t, result, MaxBatchSize)
	assert.NotContains(t, result, "C50")
}

func TestFetchPrices_DeduplicatesAndNormalizes(t *testing.T) {
	source := newFakeSource(map[string]float64{"TCS": 3300})
	fetcher := NewFetcher(source, NewCache(DefaultTTL), zerolog.Nop())

	prices := fetcher.FetchPrices(context.Background(), []string{"tcs", "TCS", " TCS ", ""})

	assert.Equal(t, map[string]float64{"TCS": 3300}, prices)
	assert.Equal(t, 1, source.totalCalls())
}

func TestFetchPrices_Empty(t *testing.T) {
	source := newFakeSource(nil)
	fetcher := NewFetcher(source, NewCache(DefaultTTL), zerolog.Nop())

	assert.Empty(t, fetcher.FetchPrices(context.Background(), nil))
	assert.Equal(t, 0, source.totalCalls())
}

func TestFetchPrices_ConcurrencyLimit(t *testing.T) {
	prices := make(map[string]float64)
	var symbols []string
	for i := 0; i < 12; i++ {
		s := fmt.Sprintf("P%d", i)
		symbols = append(symbols, s)
		prices[s] = 1
	}
	source := newFakeSource(prices)
	source.delay = 10 * time.Millisecond

	fetcher := NewFetcher(source, NewCache(DefaultTTL), zerolog.Nop(), WithConcurrency(3))
	result := fetcher.FetchPrices(context.Background(), symbols)

	assert.Len(t, result, 12)
	assert.LessOrEqual(t, source.maxSeen.Load(), int32(3))
}

func TestFetchQuotes_OrderAndCachedFlag(t *testing.T) {
	source := newFakeSource(map[string]float64{"TCS": 3300, "INFY": 1400})
	cache := NewCache(DefaultTTL)
	cache.Put("INFY", 1390)
	fetcher := NewFetcher(source, cache, zerolog.Nop())

	results := fetcher.FetchQuotes(context.Background(), []string{"TCS", "BAD", "INFY"})

	require.Len(t, results, 3)
	assert.Equal(t, "TCS", results[0].Symbol)
	assert.True(t, results[0].Available())
	assert.False(t, results[0].Cached)

	assert.Equal(t, "BAD", results[1].Symbol)
	assert.Equal(t, domain.ReasonHTTPStatus, results[1].Reason)

	assert.Equal(t, "INFY", results[2].Symbol)
	assert.True(t, results[2].Cached)
	assert.Equal(t, 1390.0, results[2].Quote.Price)
}

func TestChunk(t *testing.T) {
	symbols := make([]string, 120)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}

	chunks := Chunk(symbols, MaxBatchSize)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 20)
	assert.Equal(t, "S100", chunks[2][0])

	assert.Empty(t, Chunk(nil, 10))
	assert.Len(t, Chunk(symbols[:3], 0), 1, "non-positive size falls back to the batch cap")
}
