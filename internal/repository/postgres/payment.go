package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
)

type PaymentRepo struct {
	DB DBTX
}

const paymentColumns = `id, gateway_payment_id, user_id, amount, status, billing_type,
description, external_reference, invoice_url, bank_slip_url,
pix_payload, pix_encoded_image, payment_date, created_at, updated_at`

const createPayment = `-- name: CreatePayment
INSERT INTO payments (
	id, gateway_payment_id, user_id, amount, status, billing_type,
	description, external_reference, invoice_url, bank_slip_url,
	pix_payload, pix_encoded_image, payment_date, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
RETURNING ` + paymentColumns

func (r *PaymentRepo) CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	rows, _ := r.DB.Query(ctx, createPayment,
		p.ID, p.GatewayPaymentID, p.UserID, p.Amount, p.Status, p.BillingType,
		p.Description, p.ExternalReference, p.InvoiceURL, p.BankSlipURL,
		p.PixPayload, p.PixEncodedImage, p.PaymentDate, p.CreatedAt,
	)
	payment, err := pgx.CollectOneRow(rows, rowToPayment)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return payment, apperrors.ErrPaymentAlreadyExists
		}
		return payment, fmt.Errorf("db error: %w", err)
	}

	return payment, nil
}

const getPaymentByID = `-- name: GetPaymentByID
SELECT ` + paymentColumns + ` FROM payments
WHERE id = $1
`

func (r *PaymentRepo) GetPaymentByID(ctx context.Context, id uuid.UUID) (models.Payment, error) {
	rows, _ := r.DB.Query(ctx, getPaymentByID, id)
	return collectPayment(rows)
}

const getPaymentByGatewayID = `-- name: GetPaymentByGatewayID
SELECT ` + paymentColumns + ` FROM payments
WHERE gateway_payment_id = $1
`

func (r *PaymentRepo) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (models.Payment, error) {
	rows, _ := r.DB.Query(ctx, getPaymentByGatewayID, gatewayPaymentID)
	return collectPayment(rows)
}

const setPaymentStatus = `-- name: SetPaymentStatus
UPDATE payments
SET status = $2,
    payment_date = COALESCE($3, payment_date),
    updated_at = now()
WHERE gateway_payment_id = $1
RETURNING ` + paymentColumns

func (r *PaymentRepo) SetStatus(ctx context.Context, gatewayPaymentID string, status string, paymentDate *time.Time) (models.Payment, error) {
	rows, _ := r.DB.Query(ctx, setPaymentStatus, gatewayPaymentID, status, paymentDate)
	return collectPayment(rows)
}

const setPaymentPix = `-- name: SetPaymentPix
UPDATE payments
SET pix_payload = $2, pix_encoded_image = $3, updated_at = now()
WHERE id = $1
`

func (r *PaymentRepo) SetPix(ctx context.Context, id uuid.UUID, payload string, encodedImage string) error {
	tag, err := r.DB.Exec(ctx, setPaymentPix, id, payload, encodedImage)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPaymentNotFound
	}
	return nil
}

func collectPayment(rows pgx.Rows) (models.Payment, error) {
	payment, err := pgx.CollectOneRow(rows, rowToPayment)

	switch {
	case err == nil:
		return payment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return payment, apperrors.ErrPaymentNotFound
	default:
		return payment, fmt.Errorf("db error: %w", err)
	}
}

func rowToPayment(row pgx.CollectableRow) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.GatewayPaymentID, &p.UserID, &p.Amount, &p.Status, &p.BillingType,
		&p.Description, &p.ExternalReference, &p.InvoiceURL, &p.BankSlipURL,
		&p.PixPayload, &p.PixEncodedImage, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
