package middleware

import (
	"net/http"

	"github.com/zucropay/zucropay/internal/handlers/render"
)

// JSONMethodNotAllowed rewrites ServeMux's plain-text 405 into the
// public API error shape. The Allow header set by the mux is preserved.
func JSONMethodNotAllowed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&methodNotAllowedWriter{ResponseWriter: w}, r)
	})
}

type methodNotAllowedWriter struct {
	http.ResponseWriter
	rewrote bool
}

func (w *methodNotAllowedWriter) WriteHeader(code int) {
	if code == http.StatusMethodNotAllowed {
		w.rewrote = true
		render.APIError(w.ResponseWriter, code, "Método não permitido", "")
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write swallows the mux's text body once the JSON error went out
func (w *methodNotAllowedWriter) Write(b []byte) (int, error) {
	if w.rewrote {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}
