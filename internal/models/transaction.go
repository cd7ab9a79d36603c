package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit         = "deposit"
	TransactionTypePaymentReceived = "payment_received"
	TransactionTypeRefund          = "refund"
	TransactionTypeTransfer        = "transfer"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
)

// Transaction is a balance-affecting ledger row. Amount is signed:
// refunds and transfers carry negative amounts. At most one row may
// exist per (gateway_payment_id, type) pair, which is what makes
// webhook re-delivery safe.
type Transaction struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Type              string
	Amount            decimal.Decimal
	Status            string
	GatewayPaymentID  *string
	GatewayTransferID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
