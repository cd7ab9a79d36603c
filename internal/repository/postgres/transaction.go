package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, user_id, type, amount, status,
gateway_payment_id, gateway_transfer_id, created_at, updated_at`

// ON CONFLICT DO NOTHING against the partial unique index on
// (gateway_payment_id, type): the check and the insert are one atomic
// statement, so re-delivered webhooks can't slip a duplicate row in
// between them.
const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (
	id, user_id, type, amount, status,
	gateway_payment_id, gateway_transfer_id, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT DO NOTHING
RETURNING ` + transactionColumns

func (r *TransactionRepo) CreateTransaction(ctx context.Context, tr models.Transaction) (models.Transaction, error) {
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	if tr.Status == "" {
		tr.Status = models.TransactionStatusPending
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		tr.ID, tr.UserID, tr.Type, tr.Amount, tr.Status,
		tr.GatewayPaymentID, tr.GatewayTransferID, tr.CreatedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Conflict swallowed the insert: a row for this gateway payment
		// id and type already exists
		return created, apperrors.ErrTransactionAlreadyExists
	default:
		return created, fmt.Errorf("db error: %w", err)
	}
}

const getPendingDeposit = `-- name: GetPendingDeposit
SELECT ` + transactionColumns + ` FROM transactions
WHERE gateway_payment_id = $1 AND type = $2 AND status = $3
`

func (r *TransactionRepo) GetPendingDeposit(ctx context.Context, gatewayPaymentID string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getPendingDeposit,
		gatewayPaymentID, models.TransactionTypeDeposit, models.TransactionStatusPending)
	return collectTransaction(rows)
}

// The status guard makes completion single-shot: the second attempt
// matches no rows and reports not found instead of touching the row.
const completeTransaction = `-- name: CompleteTransaction
UPDATE transactions
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + transactionColumns

func (r *TransactionRepo) Complete(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, completeTransaction,
		id, models.TransactionStatusCompleted, models.TransactionStatusPending)
	return collectTransaction(rows)
}

const completeTransferByGatewayID = `-- name: CompleteTransferByGatewayID
UPDATE transactions
SET status = $2, updated_at = now()
WHERE gateway_transfer_id = $1 AND type = $3 AND status = $4
RETURNING ` + transactionColumns

func (r *TransactionRepo) CompleteTransferByGatewayID(ctx context.Context, gatewayTransferID string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, completeTransferByGatewayID,
		gatewayTransferID, models.TransactionStatusCompleted,
		models.TransactionTypeTransfer, models.TransactionStatusPending)
	return collectTransaction(rows)
}

const listTransactionsByUser = `-- name: ListTransactionsByUser
SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listTransactionsByUser, userID)
	trs, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return trs, nil
}

const sumCompletedByUser = `-- name: SumCompletedByUser
SELECT COALESCE(SUM(amount), 0) FROM transactions
WHERE user_id = $1 AND status = $2
`

func (r *TransactionRepo) SumCompletedByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.DB.QueryRow(ctx, sumCompletedByUser, userID, models.TransactionStatusCompleted).Scan(&sum)
	if err != nil {
		return sum, fmt.Errorf("db error: %w", err)
	}
	return sum, nil
}

func collectTransaction(rows pgx.Rows) (models.Transaction, error) {
	tr, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return tr, nil
	case errors.Is(err, pgx.ErrNoRows):
		return tr, apperrors.ErrTransactionNotFound
	default:
		return tr, fmt.Errorf("db error: %w", err)
	}
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var tr models.Transaction
	err := row.Scan(
		&tr.ID, &tr.UserID, &tr.Type, &tr.Amount, &tr.Status,
		&tr.GatewayPaymentID, &tr.GatewayTransferID, &tr.CreatedAt, &tr.UpdatedAt,
	)
	return tr, err
}
