// Package httptransport assembles the chi router: middleware chain, health
// and metrics endpoints, and the domain handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adresboek/internal/jwttoken"
	"adresboek/internal/platform/metrics"
	"adresboek/internal/platform/middleware"
	"adresboek/internal/transport/http/shared"
)

// Registrar is anything that mounts routes on the router. Both domain
// handlers implement it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one dependency. Nil checkers are skipped
// so optional backends (Redis, Postgres) do not need stub implementations.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires the full HTTP surface.
func NewRouter(
	logger *slog.Logger,
	m *metrics.Metrics,
	checkers map[string]HealthChecker,
	handlers ...Registrar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/healthz", handleHealth(checkers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

func handleHealth(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		shared.WriteJSON(w, status, body)
	}
}

// SessionValidator adapts the JWT service to the middleware's validator
// interface.
type SessionValidator struct {
	Tokens *jwttoken.JWTService
}

func (v SessionValidator) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	claims, err := v.Tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.SessionClaims{SessionID: claims.SessionID}, nil
}
