package quotes

import (
	"context"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is the most distinct symbols processed per invocation.
// Symbols beyond it are dropped, callers with more should Chunk.
const MaxBatchSize = 50

// Fetcher resolves batches of symbols to prices through the cache and a quote source.
// It is the only writer of the cache.
type Fetcher struct {
	source      domain.QuoteSource
	cache       *Cache
	log         zerolog.Logger
	concurrency int
}

// FetcherOption configures the fetcher
type FetcherOption func(*Fetcher)

// WithConcurrency bounds in-flight source calls per batch. Zero means unbounded.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		f.concurrency = n
	}
}

// NewFetcher creates a new batch price fetcher
func NewFetcher(source domain.QuoteSource, cache *Cache, log zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source: source,
		cache:  cache,
		log:    log.With().Str("component", "price_fetcher").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cache returns the cache the fetcher writes to
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// FetchPrices returns a price for every symbol that was cached or fetched successfully.
// Failed symbols are absent from the map.
func (f *Fetcher) FetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	results := f.FetchQuotes(ctx, symbols)

	prices := make(map[string]float64, len(results))
	for _, r := range results {
		if r.Available() {
			prices[r.Symbol] = r.Quote.Price
		}
	}
	return prices
}

// FetchQuotes returns one result per distinct symbol (at most MaxBatchSize), in
// first-seen order. Cache hits are marked Cached.
func (f *Fetcher) FetchQuotes(ctx context.Context, symbols []string) []domain.QuoteResult {
	batch, dropped := prepareBatch(symbols)
	if dropped > 0 {
		f.log.Warn().
			Int("accepted", len(batch)).
			Int("dropped", dropped).
			Msg("Batch exceeds size cap, dropping excess symbols")
	}

	results := make([]domain.QuoteResult, len(batch))
	var misses []int
	for i, symbol := range batch {
		if q, ok := f.cache.GetQuote(symbol); ok {
			r := domain.NewAvailableQuote(q)
			r.Cached = true
			results[i] = r
			continue
		}
		misses = append(misses, i)
	}

	stop := utils.OperationTimer("fetch_quotes", f.log)

	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	// Each goroutine owns one slot of results, so no lock is needed for the merge
	for _, i := range misses {
		g.Go(func() error {
			symbol := batch[i]
			r := f.source.FetchQuote(ctx, symbol)
			r.Symbol = symbol
			if r.Available() {
				r.Quote.Symbol = symbol
				f.cache.PutQuote(*r.Quote)
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, i := range misses {
		if !results[i].Available() {
			failed++
			f.log.Warn().
				Str("symbol", results[i].Symbol).
				Str("reason", string(results[i].Reason)).
				Msg("Price fetch failed, omitting symbol")
		}
	}

	elapsed := stop()
	f.log.Debug().
		Int("symbols", len(batch)).
		Int("cache_hits", len(batch)-len(misses)).
		Int("fetched", len(misses)-failed).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Msg("Batch fetch complete")

	return results
}

// prepareBatch normalizes and de-duplicates symbols in first-seen order, then
// applies the batch cap. It returns how many distinct symbols were dropped.
func prepareBatch(symbols []string) ([]string, int) {
	seen := make(map[string]struct{}, len(symbols))
	batch := make([]string, 0, min(len(symbols), MaxBatchSize))
	dropped := 0

	for _, raw := range symbols {
		symbol := domain.NormalizeTicker(raw)
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		if len(batch) >= MaxBatchSize {
			dropped++
			continue
		}
		batch = append(batch, symbol)
	}
	return batch, dropped
}

// Chunk splits symbols into consecutive slices of at most size elements
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}
