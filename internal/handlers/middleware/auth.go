package middleware

import (
	"context"
	"net/http"

	"github.com/zucropay/zucropay/internal/handlers/keyctx"
	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/handlers/userctx"
	"github.com/zucropay/zucropay/internal/models"
)

type TokenVerifier interface {
	UserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (models.APIKey, error)
}

// BearerAuth guards merchant endpoints with JWT bearer tokens
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.UserFromRequest(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), user)))
		})
	}
}

// APIKeyAuth guards integrator endpoints with static X-API-Key
// credentials. The guidance text matches the public API contract.
func APIKeyAuth(keys APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				render.APIError(w, http.StatusUnauthorized,
					"API key ausente", "Envie sua chave no header X-API-Key")
				return
			}

			key, err := keys.Authenticate(r.Context(), rawKey)
			if err != nil {
				render.APIError(w, http.StatusUnauthorized,
					"API key inválida ou inativa", "Verifique sua chave no painel ZucroPay")
				return
			}

			next.ServeHTTP(w, r.WithContext(keyctx.New(r.Context(), key)))
		})
	}
}
