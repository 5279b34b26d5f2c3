package middleware

import (
	"log/slog"
	"net/http"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdmin gates administrative endpoints behind a shared token. An
// empty configured token disables the endpoints entirely rather than
// leaving them open.
func RequireAdmin(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Header.Get(adminTokenHeader) != token {
				logger.WarnContext(r.Context(), "unauthorized admin access",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
