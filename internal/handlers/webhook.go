package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/logger"
)

type webhookReconciler interface {
	Handle(ctx context.Context, raw []byte)
}

// handleGatewayWebhook receives asynchronous gateway events. It always
// answers 200: a non-2xx here would make the gateway redeliver forever,
// and internal failures are already recorded on the audit row.
func handleGatewayWebhook(reconciler webhookReconciler, l logger.Logger) http.Handler {
	type response struct {
		Received bool `json:"received"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			l.Warn("Failed to read webhook body", "error", err)
			render.JSON(w, response{Received: true})
			return
		}

		reconciler.Handle(r.Context(), raw)
		render.JSON(w, response{Received: true})
	})
}
