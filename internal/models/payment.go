package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusReceived  = "RECEIVED"
	PaymentStatusConfirmed = "CONFIRMED"
	PaymentStatusOverdue   = "OVERDUE"
	PaymentStatusRefunded  = "REFUNDED"
)

const (
	BillingTypePix        = "PIX"
	BillingTypeCreditCard = "CREDIT_CARD"
	BillingTypeBoleto     = "BOLETO"
)

type Payment struct {
	ID               uuid.UUID
	GatewayPaymentID *string
	UserID           uuid.UUID
	Amount           decimal.Decimal
	Status           string
	BillingType      string
	Description      string

	// Caller-supplied correlation id, passed through untouched
	ExternalReference *string

	InvoiceURL  *string
	BankSlipURL *string

	// PIX checkout material returned by the gateway (or synthesized on
	// the direct-create path)
	PixPayload      *string
	PixEncodedImage *string

	PaymentDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
