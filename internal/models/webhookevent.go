package models

import (
	"time"
)

// WebhookEvent is the audit row for an incoming gateway callback. It is
// written before any processing happens, so the raw payload survives
// even when reconciliation fails.
type WebhookEvent struct {
	ID              int64
	EventType       string
	Payload         []byte
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	ProcessingError *string
}
