package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medicus/internal/patient/handler"
	"medicus/internal/transport/http/shared"
)

// HealthChecker reports readiness of one dependency.
type HealthChecker func(ctx context.Context) error

// NewRouter wires all endpoints: the patient API, health and metrics.
func NewRouter(patients *handler.Handler, checks map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()

	patients.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result[name] = err.Error()
			} else {
				result[name] = "ok"
			}
		}
		shared.WriteJSON(w, status, result)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
