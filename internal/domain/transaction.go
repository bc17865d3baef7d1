// Package domain defines the core types for Shrike.
package domain

import (
	"time"
)

// Transaction represents a single parsed transaction from the input batch.
// Instances are immutable once loaded; rules never mutate them.
type Transaction struct {
	// Core identifiers
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`

	// Financial details
	Amount float64 `json:"amount"`

	// Context used by rules
	Location  string `json:"location"`
	DeviceID  string `json:"deviceId"`
	IsForeign bool   `json:"isForeign"`
}

// Hour returns the hour-of-day in the transaction's own location.
func (t *Transaction) Hour() int {
	return t.Timestamp.Hour()
}
