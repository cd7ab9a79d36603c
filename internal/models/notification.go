package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationStatusPending   = "pending"
	NotificationStatusSending   = "sending"
	NotificationStatusDelivered = "delivered"
	NotificationStatusFailed    = "failed"
)

// Notification is an outbox row for an integrator-facing callback.
// Delivery is single-shot: a failed attempt marks the row failed and is
// never retried.
type Notification struct {
	ID          uuid.UUID
	PaymentID   uuid.UUID
	URL         string
	Event       string
	Payload     []byte
	Status      string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
