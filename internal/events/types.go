// Package events provides an in-process publish/subscribe bus for system events.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PriceUpdated            EventType = "PRICE_UPDATED"
	ReconciliationCompleted EventType = "RECONCILIATION_COMPLETED"
	RebalanceChecked        EventType = "REBALANCE_CHECKED"
	BackupCompleted         EventType = "BACKUP_COMPLETED"
	ErrorOccurred           EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, for subscribers that want everything
var AllTypes = []EventType{
	PriceUpdated,
	ReconciliationCompleted,
	RebalanceChecked,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event with typed data
type Event struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Data      EventData `json:"data" msgpack:"data"`
	Type      EventType `json:"type" msgpack:"type"`
	Module    string    `json:"module" msgpack:"module"`
}
