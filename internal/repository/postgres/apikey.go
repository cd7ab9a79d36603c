package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/models"
)

type APIKeyRepo struct {
	DB DBTX
}

const createAPIKey = `-- name: CreateAPIKey
INSERT INTO api_keys (id, user_id, prefix, secret_hash, status, created_at, last_used_at)
VALUES ($1, $2, $3, $4, $5, now(), NULL)
RETURNING id, user_id, prefix, secret_hash, status, created_at, last_used_at
`

func (r *APIKeyRepo) CreateAPIKey(ctx context.Context, key models.APIKey) (models.APIKey, error) {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.Status == "" {
		key.Status = models.APIKeyStatusActive
	}

	rows, _ := r.DB.Query(ctx, createAPIKey, key.ID, key.UserID, key.Prefix, key.SecretHash, key.Status)
	created, err := pgx.CollectOneRow(rows, rowToAPIKey)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

const getAPIKeyByPrefix = `-- name: GetAPIKeyByPrefix
SELECT id, user_id, prefix, secret_hash, status, created_at, last_used_at
FROM api_keys
WHERE prefix = $1
`

func (r *APIKeyRepo) GetByPrefix(ctx context.Context, prefix string) (models.APIKey, error) {
	rows, _ := r.DB.Query(ctx, getAPIKeyByPrefix, prefix)
	key, err := pgx.CollectOneRow(rows, rowToAPIKey)

	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, pgx.ErrNoRows):
		return key, apperrors.ErrAPIKeyNotFound
	default:
		return key, fmt.Errorf("db error: %w", err)
	}
}

const touchAPIKeyLastUsed = `-- name: TouchAPIKeyLastUsed
UPDATE api_keys
SET last_used_at = $2
WHERE id = $1
`

func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	tag, err := r.DB.Exec(ctx, touchAPIKeyLastUsed, id, usedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAPIKeyNotFound
	}
	return nil
}

func rowToAPIKey(row pgx.CollectableRow) (models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Prefix, &k.SecretHash, &k.Status, &k.CreatedAt, &k.LastUsedAt)
	return k, err
}
