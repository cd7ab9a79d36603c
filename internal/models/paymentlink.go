package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentLink is a merchant-configured checkout template with a fixed
// amount and description, exposed publicly by id.
type PaymentLink struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Description   string
	Active        bool
	PaymentsCount int
	CreatedAt     time.Time
}
