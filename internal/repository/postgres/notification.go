package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
)

type NotificationRepo struct {
	DB DBTX
}

const notificationColumns = `id, payment_id, url, event, payload, status, created_at, delivered_at`

// clock_timestamp() instead of now(): rows queued inside one
// transaction must still dispatch in insertion order.
const createNotification = `-- name: CreateNotification
INSERT INTO notifications (id, payment_id, url, event, payload, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
RETURNING ` + notificationColumns

func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}

	rows, _ := r.DB.Query(ctx, createNotification, n.ID, n.PaymentID, n.URL, n.Event, n.Payload, n.Status)
	created, err := pgx.CollectOneRow(rows, rowToNotification)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// A plain SELECT FOR UPDATE would drop its row locks at statement end
// when running in autocommit, so the rows are flipped to 'sending'
// within the same statement. A row is only listed again if Release puts
// it back to 'pending'.
const claimPendingNotifications = `-- name: ClaimPendingNotifications
UPDATE notifications
SET status = $3
WHERE id IN (
    SELECT id FROM notifications
    WHERE status = $1
    ORDER BY created_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + notificationColumns

func (r *NotificationRepo) ClaimPending(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, _ := r.DB.Query(ctx, claimPendingNotifications,
		models.NotificationStatusPending, limit, models.NotificationStatusSending)
	ns, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// RETURNING does not promise the SELECT's order
	slices.SortFunc(ns, func(a, b models.Notification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return ns, nil
}

const releaseNotifications = `-- name: ReleaseNotifications
UPDATE notifications
SET status = $2
WHERE id = ANY($1::uuid[]) AND status = $3
`

// Release puts claimed rows back to pending so a later claim picks
// them up, used when dispatch stops before the rows reach a worker.
func (r *NotificationRepo) Release(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	_, err := r.DB.Exec(ctx, releaseNotifications,
		strIDs, models.NotificationStatusPending, models.NotificationStatusSending)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const markNotificationDelivered = `-- name: MarkNotificationDelivered
UPDATE notifications
SET status = $2, delivered_at = $3
WHERE id = $1
`

func (r *NotificationRepo) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	return r.setStatus(ctx, markNotificationDelivered, id, models.NotificationStatusDelivered, deliveredAt)
}

const markNotificationFailed = `-- name: MarkNotificationFailed
UPDATE notifications
SET status = $2
WHERE id = $1
`

func (r *NotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, markNotificationFailed, id, models.NotificationStatusFailed)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepo) setStatus(ctx context.Context, sql string, id uuid.UUID, status string, deliveredAt time.Time) error {
	tag, err := r.DB.Exec(ctx, sql, id, status, deliveredAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func rowToNotification(row pgx.CollectableRow) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.PaymentID, &n.URL, &n.Event, &n.Payload, &n.Status, &n.CreatedAt, &n.DeliveredAt)
	return n, err
}
