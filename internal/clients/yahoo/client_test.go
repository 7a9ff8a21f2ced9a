package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartOK = `{"chart":{"result":[{"meta":{"symbol":"TCS.NS","currency":"INR",
"regularMarketPrice":3300.5,"previousClose":3250.0,"chartPreviousClose":3200.0}}],"error":null}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fixed := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	base := []ClientOption{WithBaseURL(server.URL), WithRateLimit(0), WithClock(func() time.Time { return fixed })}
	return NewClient(zerolog.Nop(), append(base, opts...)...)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		symbol   string
		expected string
	}{
		{"TCS", "TCS.NS"},
		{" INFY ", "INFY.NS"},
		{"RELIANCE.BO", "RELIANCE.BO"},
		{"AAPL.US", "AAPL.US"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymbol(tt.symbol, ".NS"))
		})
	}
}

func TestFetchQuote_Success(t *testing.T) {
	var gotPath, gotUA, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartOK))
	})

	result := client.FetchQuote(context.Background(), "TCS")

	require.True(t, result.Available())
	assert.Equal(t, "/v8/finance/chart/TCS.NS", gotPath)
	assert.Equal(t, "interval=1d&range=1d", gotQuery)
	assert.Contains(t, gotUA, "Mozilla")

	q := result.Quote
	assert.Equal(t, "TCS", q.Symbol, "result keeps the caller's symbol")
	assert.InDelta(t, 3300.5, q.Price, 1e-9)
	require.NotNil(t, q.Change)
	require.NotNil(t, q.ChangePercent)
	assert.InDelta(t, 50.5, *q.Change, 1e-9)
	assert.InDelta(t, 50.5/3250.0*100, *q.ChangePercent, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC), q.FetchedAt)
}

func TestFetchQuote_FallsBackToChartPreviousClose(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":110,"chartPreviousClose":100}}]}}`))
	})

	result := client.FetchQuote(context.Background(), "HDFCBANK.NS")

	require.True(t, result.Available())
	assert.InDelta(t, 10, *result.Quote.Change, 1e-9)
	assert.InDelta(t, 10, *result.Quote.ChangePercent, 1e-9)
}

func TestFetchQuote_NoPreviousCloseIsStillAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":42}}]}}`))
	})

	result := client.FetchQuote(context.Background(), "XYZ")

	require.True(t, result.Available())
	assert.Equal(t, 42.0, result.Quote.Price)
	assert.Nil(t, result.Quote.Change)
	assert.Nil(t, result.Quote.ChangePercent)
}

func TestFetchQuote_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason domain.FailureReason
	}{
		{"not found", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, domain.ReasonHTTPStatus},
		{"server error", http.StatusInternalServerError, `oops`, domain.ReasonHTTPStatus},
		{"not json", http.StatusOK, `<html>`, domain.ReasonMalformedBody},
		{"null result", http.StatusOK, `{"chart":{"result":null,"error":{"description":"No data found"}}}`, domain.ReasonMalformedBody},
		{"empty result", http.StatusOK, `{"chart":{"result":[]}}`, domain.ReasonMalformedBody},
		{"meta not object", http.StatusOK, `{"chart":{"result":[{"meta":5}]}}`, domain.ReasonMalformedBody},
		{"missing price", http.StatusOK, `{"chart":{"result":[{"meta":{"previousClose":10}}]}}`, domain.ReasonMissingPrice},
		{"price as string", http.StatusOK, `{"chart":{"result":[{"meta":{"regularMarketPrice":"10"}}]}}`, domain.ReasonMissingPrice},
		{"zero price", http.StatusOK, `{"chart":{"result":[{"meta":{"regularMarketPrice":0}}]}}`, domain.ReasonMissingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result := client.FetchQuote(context.Background(), "BAD")

			assert.False(t, result.Available())
			assert.Equal(t, domain.QuoteUnavailable, result.Status)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Equal(t, "BAD", result.Symbol)
			assert.NotEmpty(t, result.Detail)
		})
	}
}

func TestFetchQuote_ChartErrorDescriptionInDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"description":"No data found, symbol may be delisted"}}}`))
	})

	result := client.FetchQuote(context.Background(), "GONE")

	assert.Equal(t, "No data found, symbol may be delisted", result.Detail)
}

func TestFetchQuote_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	result := client.FetchQuote(context.Background(), "SLOW")

	assert.Equal(t, domain.ReasonTimeout, result.Reason)
}

func TestFetchQuote_Transport(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(zerolog.Nop(), WithBaseURL(url), WithRateLimit(0))
	result := client.FetchQuote(context.Background(), "TCS")

	assert.Equal(t, domain.ReasonTransport, result.Reason)
}

func TestFetchQuote_RateLimited(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(chartOK))
	}, WithRateLimit(1))

	// Burst of one: the first call passes, the second waits ~1s and the
	// cancelled context turns that wait into a failure
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	first := client.FetchQuote(ctx, "TCS")
	second := client.FetchQuote(ctx, "INFY")

	assert.True(t, first.Available())
	assert.False(t, second.Available())
	assert.Equal(t, int32(1), calls.Load())
}
