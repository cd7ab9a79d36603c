package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/models"
)

// Storage bundles all repositories backed by the same database handle.
// InTx runs fn with a Storage bound to a single transaction; every
// reconciliation step that touches both the ledger and a balance must go
// through it.
type Storage interface {
	User() UserRepo
	Payment() PaymentRepo
	Transaction() TransactionRepo
	PaymentLink() PaymentLinkRepo
	APIKey() APIKeyRepo
	WebhookEvent() WebhookEventRepo
	Notification() NotificationRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Name          string
	Email         string
	GatewayAPIKey *string
}

type UserRepo interface {
	// Create user with zero balance
	// If user with the email exists must return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)

	// ApplyBalanceDelta adds a signed delta to the user's balance in a
	// single UPDATE statement and returns the updated user. Never read
	// a balance and write it back; this is the only mutation path.
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (models.User, error)
}

type PaymentRepo interface {
	CreatePayment(ctx context.Context, payment models.Payment) (models.Payment, error)

	// If payment not found must return apperrors.ErrPaymentNotFound
	GetPaymentByID(ctx context.Context, id uuid.UUID) (models.Payment, error)
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (models.Payment, error)

	// SetStatus updates status and, when paymentDate is not nil, the
	// payment date. updated_at is always touched.
	SetStatus(ctx context.Context, gatewayPaymentID string, status string, paymentDate *time.Time) (models.Payment, error)

	// SetPix stores the PIX material fetched after payment creation
	SetPix(ctx context.Context, id uuid.UUID, payload string, encodedImage string) error
}

type TransactionRepo interface {
	// CreateTransaction inserts a ledger row. For rows carrying a
	// gateway payment id the insert is guarded by a unique index on
	// (gateway_payment_id, type): a second insert for the same pair must
	// return apperrors.ErrTransactionAlreadyExists without side effects.
	CreateTransaction(ctx context.Context, tr models.Transaction) (models.Transaction, error)

	// GetPendingDeposit returns the pending deposit transaction
	// pre-created for a wallet top-up, keyed by gateway payment id.
	// Must return apperrors.ErrTransactionNotFound when there is none:
	// that miss is what tells the reconciler it is looking at a sale.
	GetPendingDeposit(ctx context.Context, gatewayPaymentID string) (models.Transaction, error)

	// Complete marks a transaction completed. Completing an already
	// completed transaction must return apperrors.ErrTransactionNotFound
	// so the caller never applies the same balance delta twice.
	Complete(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// CompleteTransferByGatewayID completes the pending transfer row for
	// the given gateway transfer id, with the same already-completed
	// semantics as Complete.
	CompleteTransferByGatewayID(ctx context.Context, gatewayTransferID string) (models.Transaction, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)

	// SumCompletedByUser returns the running sum of completed amounts,
	// the quantity the user's balance must always equal
	SumCompletedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type CreatePaymentLinkParams struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

type PaymentLinkRepo interface {
	CreatePaymentLink(ctx context.Context, arg CreatePaymentLinkParams) (models.PaymentLink, error)

	// GetActiveLink returns apperrors.ErrPaymentLinkNotFound for both a
	// missing and an inactive link: the public intake treats them alike.
	GetActiveLink(ctx context.Context, id uuid.UUID) (models.PaymentLink, error)

	// IncrementPaymentsCount bumps the counter unconditionally
	IncrementPaymentsCount(ctx context.Context, id uuid.UUID) error

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentLink, error)
}

type APIKeyRepo interface {
	CreateAPIKey(ctx context.Context, key models.APIKey) (models.APIKey, error)

	// GetByPrefix returns the key row whatever its status; callers
	// decide how to treat revoked keys.
	// If no key exists must return apperrors.ErrAPIKeyNotFound
	GetByPrefix(ctx context.Context, prefix string) (models.APIKey, error)

	TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

type WebhookEventRepo interface {
	// CreateEvent persists the raw payload before any processing
	CreateEvent(ctx context.Context, eventType string, payload []byte) (models.WebhookEvent, error)

	// MarkProcessed stamps processed_at and, when procErr is not empty,
	// records it as the processing error
	MarkProcessed(ctx context.Context, id int64, procErr string) error
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)

	// ClaimPending atomically flips up to limit pending rows to sending
	// and returns them oldest first. A claimed row is never returned by
	// a later claim, so two dispatchers cannot deliver the same
	// notification.
	ClaimPending(ctx context.Context, limit int) ([]models.Notification, error)

	// Release puts claimed rows that were never handed to a worker back
	// to pending
	Release(ctx context.Context, ids []uuid.UUID) error

	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
