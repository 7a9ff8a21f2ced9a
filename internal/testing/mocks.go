package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// MockHoldingsStore is an in-memory domain.HoldingsStore for tests.
// ListErr fails ListHoldings; UpdateErrs fails UpdateCurrentPrice for specific ids.
type MockHoldingsStore struct {
	holdings   map[string]domain.Holding
	ListErr    error
	UpdateErrs map[string]error
	Updates    []PriceUpdate
	mu         sync.Mutex
}

// PriceUpdate records one UpdateCurrentPrice call
type PriceUpdate struct {
	At    time.Time
	ID    string
	Price float64
}

// NewMockHoldingsStore creates a store seeded with the given holdings
func NewMockHoldingsStore(holdings ...domain.Holding) *MockHoldingsStore {
	m := &MockHoldingsStore{
		holdings:   make(map[string]domain.Holding),
		UpdateErrs: make(map[string]error),
	}
	for _, h := range holdings {
		m.holdings[h.ID] = h
	}
	return m
}

// ListHoldings returns holdings matching the filter ordered by creation time
func (m *MockHoldingsStore) ListHoldings(ctx context.Context, filter domain.HoldingFilter) ([]domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var out []domain.Holding
	for _, h := range m.holdings {
		if filter.UserID != "" && h.UserID != filter.UserID {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, h.Category) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateCurrentPrice records the update and applies it unless an error is configured
func (m *MockHoldingsStore) UpdateCurrentPrice(ctx context.Context, id string, price float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.UpdateErrs[id]; err != nil {
		return err
	}
	h, ok := m.holdings[id]
	if !ok {
		return domain.ErrHoldingNotFound
	}
	h.CurrentPrice = price
	h.UpdatedAt = at
	m.holdings[id] = h
	m.Updates = append(m.Updates, PriceUpdate{ID: id, Price: price, At: at})
	return nil
}

// Create stores a holding
func (m *MockHoldingsStore) Create(ctx context.Context, h domain.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings[h.ID] = h
	return nil
}

// GetByID returns a holding owned by userID
func (m *MockHoldingsStore) GetByID(ctx context.Context, userID, id string) (*domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holdings[id]
	if !ok || h.UserID != userID {
		return nil, domain.ErrHoldingNotFound
	}
	return &h, nil
}

// Update replaces a holding
func (m *MockHoldingsStore) Update(ctx context.Context, h domain.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.holdings[h.ID]
	if !ok || existing.UserID != h.UserID {
		return domain.ErrHoldingNotFound
	}
	m.holdings[h.ID] = h
	return nil
}

// Delete removes a holding owned by userID
func (m *MockHoldingsStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holdings[id]
	if !ok || h.UserID != userID {
		return domain.ErrHoldingNotFound
	}
	delete(m.holdings, id)
	return nil
}

// Holding returns the stored copy of a holding for assertions
func (m *MockHoldingsStore) Holding(id string) (domain.Holding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holdings[id]
	return h, ok
}

func containsCategory(categories []domain.InstrumentCategory, c domain.InstrumentCategory) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}

// StaticPriceFetcher is a domain.PriceFetcher returning fixed prices
type StaticPriceFetcher struct {
	Prices map[string]float64
	Calls  [][]string
	mu     sync.Mutex
}

// FetchPrices returns the configured price for every known symbol
func (f *StaticPriceFetcher) FetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, append([]string(nil), symbols...))
	out := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := f.Prices[s]; ok {
			out[s] = p
		}
	}
	return out
}
