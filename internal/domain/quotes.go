package domain

import "time"

// QuoteStatus tags a QuoteResult
type QuoteStatus string

const (
	QuoteAvailable   QuoteStatus = "available"
	QuoteUnavailable QuoteStatus = "unavailable"
)

// FailureReason classifies why a quote could not be produced
type FailureReason string

const (
	ReasonHTTPStatus    FailureReason = "http_status"
	ReasonTransport     FailureReason = "transport"
	ReasonMalformedBody FailureReason = "malformed_body"
	ReasonMissingPrice  FailureReason = "missing_price"
	ReasonTimeout       FailureReason = "timeout"
)

// Quote is a single price observation.
// Change and ChangePercent are nil when the previous close is unknown.
type Quote struct {
	FetchedAt     time.Time `json:"fetched_at"`
	Change        *float64  `json:"change"`
	ChangePercent *float64  `json:"change_percent"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
}

// QuoteResult is either an available Quote or a failure with a reason
type QuoteResult struct {
	Quote  *Quote        `json:"quote,omitempty"`
	Symbol string        `json:"symbol"`
	Status QuoteStatus   `json:"status"`
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
	Cached bool          `json:"cached,omitempty"`
}

// Available reports whether the result carries a price
func (r QuoteResult) Available() bool {
	return r.Status == QuoteAvailable && r.Quote != nil
}

// NewAvailableQuote wraps a quote in a successful result
func NewAvailableQuote(q Quote) QuoteResult {
	return QuoteResult{Symbol: q.Symbol, Status: QuoteAvailable, Quote: &q}
}

// NewUnavailableQuote builds a failed result
func NewUnavailableQuote(symbol string, reason FailureReason, detail string) QuoteResult {
	return QuoteResult{Symbol: symbol, Status: QuoteUnavailable, Reason: reason, Detail: detail}
}
