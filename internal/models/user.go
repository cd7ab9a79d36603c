package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Name      string
	Email     string

	// Running sum of all completed transaction amounts for the user.
	// Mutated only with atomic delta updates, never read-modify-write.
	Balance decimal.Decimal

	// Per-merchant gateway credential. Nil means the platform-wide
	// credential is used instead.
	GatewayAPIKey *string
}
