package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

type PaymentLinkRepo struct {
	DB DBTX
}

const createPaymentLink = `-- name: CreatePaymentLink
INSERT INTO payment_links (id, user_id, amount, description, active, payments_count, created_at)
VALUES ($1, $2, $3, $4, true, 0, now())
RETURNING id, user_id, amount, description, active, payments_count, created_at
`

func (r *PaymentLinkRepo) CreatePaymentLink(ctx context.Context, arg repository.CreatePaymentLinkParams) (models.PaymentLink, error) {
	rows, _ := r.DB.Query(ctx, createPaymentLink, uuid.New(), arg.UserID, arg.Amount, arg.Description)
	link, err := pgx.CollectOneRow(rows, rowToPaymentLink)
	if err != nil {
		return link, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

const getActiveLink = `-- name: GetActiveLink
SELECT id, user_id, amount, description, active, payments_count, created_at
FROM payment_links
WHERE id = $1 AND active
`

func (r *PaymentLinkRepo) GetActiveLink(ctx context.Context, id uuid.UUID) (models.PaymentLink, error) {
	rows, _ := r.DB.Query(ctx, getActiveLink, id)
	link, err := pgx.CollectOneRow(rows, rowToPaymentLink)

	switch {
	case err == nil:
		return link, nil
	case errors.Is(err, pgx.ErrNoRows):
		return link, apperrors.ErrPaymentLinkNotFound
	default:
		return link, fmt.Errorf("db error: %w", err)
	}
}

const incrementPaymentsCount = `-- name: IncrementPaymentsCount
UPDATE payment_links
SET payments_count = payments_count + 1
WHERE id = $1
`

func (r *PaymentLinkRepo) IncrementPaymentsCount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, incrementPaymentsCount, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPaymentLinkNotFound
	}
	return nil
}

const listLinksByUser = `-- name: ListLinksByUser
SELECT id, user_id, amount, description, active, payments_count, created_at
FROM payment_links
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *PaymentLinkRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentLink, error) {
	rows, _ := r.DB.Query(ctx, listLinksByUser, userID)
	links, err := pgx.CollectRows(rows, rowToPaymentLink)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return links, nil
}

func rowToPaymentLink(row pgx.CollectableRow) (models.PaymentLink, error) {
	var l models.PaymentLink
	err := row.Scan(&l.ID, &l.UserID, &l.Amount, &l.Description, &l.Active, &l.PaymentsCount, &l.CreatedAt)
	return l, err
}
