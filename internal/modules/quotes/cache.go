// Package quotes provides the process-local quote cache and the batch price fetcher.
package quotes

import (
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// DefaultTTL is how long a fetched price is served from the cache
const DefaultTTL = 5 * time.Minute

// Cache is a TTL cache of the latest quote per symbol.
// Stale entries are never deleted; they read as misses until overwritten.
type Cache struct {
	entries map[string]domain.Quote
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewCache creates a cache with the given TTL, DefaultTTL when ttl <= 0
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]domain.Quote),
		now:     time.Now,
		ttl:     ttl,
	}
}

// SetClock replaces the clock, for tests
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached price if it is younger than the TTL
func (c *Cache) Get(symbol string) (float64, bool) {
	q, ok := c.GetQuote(symbol)
	if !ok {
		return 0, false
	}
	return q.Price, true
}

// GetQuote returns the full cached quote if it is younger than the TTL
func (c *Cache) GetQuote(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.entries[symbol]
	if !ok || c.now().Sub(q.FetchedAt) >= c.ttl {
		return domain.Quote{}, false
	}
	return q, true
}

// Put stores a price observed now, overwriting any previous entry
func (c *Cache) Put(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = domain.Quote{Symbol: symbol, Price: price, FetchedAt: c.now()}
}

// PutQuote stores a full quote observed now, keeping its change fields
func (c *Cache) PutQuote(q domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q.FetchedAt = c.now()
	c.entries[q.Symbol] = q
}

// Len returns the number of entries, fresh or stale
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
