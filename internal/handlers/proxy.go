package handlers

import (
	"context"
	"net/http"

	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/handlers/userctx"
	"github.com/zucropay/zucropay/internal/logger"
)

type gatewayProxy interface {
	Do(ctx context.Context, apiKey string, method string, endpoint string, data any) (int, []byte, error)
}

// handleGatewayProxy forwards an arbitrary request to the payment
// processor on behalf of an authenticated merchant, using the
// merchant's own credential when one is configured.
func handleGatewayProxy(gw gatewayProxy, platformAPIKey string, l logger.Logger) http.Handler {
	type request struct {
		Method   string `json:"method" validate:"required,oneof=GET POST PUT DELETE"`
		Endpoint string `json:"endpoint" validate:"required"`
		Data     any    `json:"data"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		apiKey := platformAPIKey
		if user.GatewayAPIKey != nil && *user.GatewayAPIKey != "" {
			apiKey = *user.GatewayAPIKey
		}

		status, body, err := gw.Do(r.Context(), apiKey, req.Method, req.Endpoint, req.Data)
		if err != nil {
			l.Error("Gateway proxy call failed", "error", err, "endpoint", req.Endpoint)
			render.ServiceError(w, "Gateway unreachable", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}
