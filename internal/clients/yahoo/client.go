// Package yahoo provides a quote source backed by the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL        = "https://query1.finance.yahoo.com"
	DefaultExchangeSuffix = ".NS"
	DefaultTimeout        = 10 * time.Second
	DefaultRateLimit      = 10 // requests per second

	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	maxBodyBytes = 1 << 20
)

// Paths into the chart response. Yahoo omits fields rather than sending nulls.
const (
	pathMeta              = "$.chart.result[0].meta"
	pathChartError        = "$.chart.error.description"
	keyRegularMarketPrice = "regularMarketPrice"
	keyPreviousClose      = "previousClose"
	keyChartPreviousClose = "chartPreviousClose"
)

// Client is a Yahoo Finance chart API client
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	log        zerolog.Logger
	baseURL    string
	suffix     string
	timeout    time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithExchangeSuffix sets the suffix appended to unqualified symbols
func WithExchangeSuffix(suffix string) ClientOption {
	return func(c *Client) {
		c.suffix = suffix
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit sets the outbound rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock overrides the clock used to stamp quotes
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		now:        time.Now,
		log:        log.With().Str("client", "yahoo").Logger(),
		baseURL:    DefaultBaseURL,
		suffix:     DefaultExchangeSuffix,
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeSymbol appends the exchange suffix to symbols without an exchange qualifier.
// Symbols that already contain a '.' are returned unchanged.
func NormalizeSymbol(symbol, suffix string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + suffix
}

// FetchQuote fetches the latest price for one symbol.
// Every failure is returned as an unavailable result; the error never escapes.
func (c *Client) FetchQuote(ctx context.Context, symbol string) domain.QuoteResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return c.fail(symbol, classifyTransportError(ctx, err), fmt.Sprintf("rate limit wait: %v", err))
	}

	yfSymbol := NormalizeSymbol(symbol, c.suffix)
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(yfSymbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.fail(symbol, domain.ReasonTransport, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(symbol, classifyTransportError(ctx, err), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(symbol, classifyTransportError(ctx, err), fmt.Sprintf("failed to read body: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return c.fail(symbol, domain.ReasonHTTPStatus, fmt.Sprintf("status %d", resp.StatusCode))
	}

	quote, reason, detail := parseChart(body)
	if reason != "" {
		return c.fail(symbol, reason, detail)
	}

	quote.Symbol = symbol
	quote.FetchedAt = c.now().UTC()

	c.log.Debug().
		Str("symbol", symbol).
		Str("yahoo_symbol", yfSymbol).
		Float64("price", quote.Price).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched quote")

	return domain.NewAvailableQuote(quote)
}

func (c *Client) fail(symbol string, reason domain.FailureReason, detail string) domain.QuoteResult {
	c.log.Warn().
		Str("symbol", symbol).
		Str("reason", string(reason)).
		Str("detail", detail).
		Msg("Quote unavailable")
	return domain.NewUnavailableQuote(symbol, reason, detail)
}

// parseChart extracts price and previous close from a chart response body.
// It returns a non-empty reason when the body cannot produce a price.
func parseChart(body []byte) (domain.Quote, domain.FailureReason, string) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Quote{}, domain.ReasonMalformedBody, fmt.Sprintf("invalid JSON: %v", err)
	}

	metaVal, err := jsonpath.Get(pathMeta, doc)
	if err != nil {
		detail := "chart.result[0].meta not found"
		if desc, derr := jsonpath.Get(pathChartError, doc); derr == nil {
			if s, ok := desc.(string); ok && s != "" {
				detail = s
			}
		}
		return domain.Quote{}, domain.ReasonMalformedBody, detail
	}

	meta, ok := metaVal.(map[string]any)
	if !ok {
		return domain.Quote{}, domain.ReasonMalformedBody, "chart meta is not an object"
	}

	price, ok := positiveNumber(meta, keyRegularMarketPrice)
	if !ok {
		return domain.Quote{}, domain.ReasonMissingPrice, "regularMarketPrice missing or not positive"
	}

	quote := domain.Quote{Price: price}

	prevClose, ok := positiveNumber(meta, keyPreviousClose)
	if !ok {
		prevClose, ok = positiveNumber(meta, keyChartPreviousClose)
	}
	if ok {
		change := price - prevClose
		changePercent := change / prevClose * 100
		quote.Change = &change
		quote.ChangePercent = &changePercent
	}

	return quote, "", ""
}

func positiveNumber(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func classifyTransportError(ctx context.Context, err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonTransport
}
