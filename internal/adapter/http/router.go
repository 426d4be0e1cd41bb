package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/TicketForge/internal/adapter/otel"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/middleware"
	"github.com/Strob0t/TicketForge/internal/port/cache"
)

// Version is reported by GET /api/v1/ and the health endpoints.
var Version = "0.1.0"

// HealthCheck checks one dependency for /health/ready.
type HealthCheck func(ctx context.Context) error

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Server      config.Server
	ServiceName string
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	WebSocket   http.HandlerFunc        // nil disables /ws
	Checks      map[string]HealthCheck
	// Idempotency stores replayable POST responses; nil disables
	// Idempotency-Key handling.
	Idempotency    cache.Cache
	IdempotencyTTL time.Duration
	// RequestTimeout bounds every API request. It must exceed the pipeline
	// run timeout.
	RequestTimeout time.Duration
}

// NewRouter builds the full middleware stack and mounts all routes.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS(opts.Server.CORSOrigin))
	r.Use(SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware(opts.ServiceName))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Handler)
	}
	r.Use(middleware.APIKey(opts.Server.APIKeyHash))

	r.Get("/health", liveness)
	r.Get("/health/ready", readiness(opts.Checks))

	if opts.WebSocket != nil {
		r.Get("/ws", opts.WebSocket)
	}

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chimw.Timeout(opts.RequestTimeout))
		}
		r.Use(middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL))
		MountRoutes(r, h)
	})
	return r
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := readinessReport{Status: "ok", Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report.Status = "degraded"
				report.Checks[name] = err.Error()
				continue
			}
			report.Checks[name] = "ok"
		}

		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}
