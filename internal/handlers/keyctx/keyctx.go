package keyctx

import (
	"context"

	"github.com/zucropay/zucropay/internal/models"
)

type ctxKey string

const apiKeyKey ctxKey = "apikey"

// Create a new context carrying the authenticated API key
func New(ctx context.Context, k models.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyKey, k)
}

// Extract the API key from the context
func FromContext(ctx context.Context) (models.APIKey, bool) {
	k, ok := ctx.Value(apiKeyKey).(models.APIKey)
	return k, ok
}
