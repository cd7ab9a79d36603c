package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
)

type WebhookEventRepo struct {
	DB DBTX
}

const createWebhookEvent = `-- name: CreateWebhookEvent
INSERT INTO webhook_events (event_type, payload, received_at)
VALUES ($1, $2, now())
RETURNING id, event_type, payload, received_at, processed_at, processing_error
`

func (r *WebhookEventRepo) CreateEvent(ctx context.Context, eventType string, payload []byte) (models.WebhookEvent, error) {
	rows, _ := r.DB.Query(ctx, createWebhookEvent, eventType, payload)
	event, err := pgx.CollectOneRow(rows, rowToWebhookEvent)
	if err != nil {
		return event, fmt.Errorf("db error: %w", err)
	}
	return event, nil
}

const markWebhookEventProcessed = `-- name: MarkWebhookEventProcessed
UPDATE webhook_events
SET processed_at = now(), processing_error = NULLIF($2, '')
WHERE id = $1
`

func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, id int64, procErr string) error {
	tag, err := r.DB.Exec(ctx, markWebhookEventProcessed, id, procErr)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrWebhookEventNotFound
	}
	return nil
}

func rowToWebhookEvent(row pgx.CollectableRow) (models.WebhookEvent, error) {
	var e models.WebhookEvent
	err := row.Scan(&e.ID, &e.EventType, &e.Payload, &e.ReceivedAt, &e.ProcessedAt, &e.ProcessingError)
	return e, err
}
