package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PriceUpdatedData is emitted for each holding whose current price changed
type PriceUpdatedData struct {
	HoldingID string  `json:"holding_id" msgpack:"holding_id"`
	UserID    string  `json:"user_id" msgpack:"user_id"`
	Symbol    string  `json:"symbol" msgpack:"symbol"`
	OldPrice  float64 `json:"old_price" msgpack:"old_price"`
	NewPrice  float64 `json:"new_price" msgpack:"new_price"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// ReconciliationCompletedData summarizes a finished reconciliation run
type ReconciliationCompletedData struct {
	Trigger          string `json:"trigger" msgpack:"trigger"`
	SymbolsProcessed int    `json:"symbols_processed" msgpack:"symbols_processed"`
	PricesFetched    int    `json:"prices_fetched" msgpack:"prices_fetched"`
	HoldingsUpdated  int    `json:"holdings_updated" msgpack:"holdings_updated"`
	Failures         int    `json:"failures" msgpack:"failures"`
}

// EventType returns the event type for ReconciliationCompletedData
func (d *ReconciliationCompletedData) EventType() EventType {
	return ReconciliationCompleted
}

// RebalanceCheckedData summarizes a rebalance check across portfolios
type RebalanceCheckedData struct {
	PortfoliosAnalyzed         int `json:"portfolios_analyzed" msgpack:"portfolios_analyzed"`
	PortfoliosNeedingAttention int `json:"portfolios_needing_attention" msgpack:"portfolios_needing_attention"`
}

// EventType returns the event type for RebalanceCheckedData
func (d *RebalanceCheckedData) EventType() EventType {
	return RebalanceChecked
}

// BackupCompletedData describes an uploaded database snapshot
type BackupCompletedData struct {
	Key       string `json:"key" msgpack:"key"`
	SizeBytes int64  `json:"size_bytes" msgpack:"size_bytes"`
	Pruned    int    `json:"pruned" msgpack:"pruned"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty" msgpack:"context,omitempty"`
	Error   string                 `json:"error" msgpack:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
