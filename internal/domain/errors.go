package domain

import "errors"

var (
	// ErrHoldingNotFound is returned when a holding id does not exist for the user
	ErrHoldingNotFound = errors.New("holding not found")
	// ErrInvalidHolding is returned when a holding violates its invariants
	ErrInvalidHolding = errors.New("invalid holding")
)
