// Package httptransport assembles the HTTP surface: platform middleware,
// health and metrics endpoints, and the domain handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"flighttracker/internal/platform/metrics"
	"flighttracker/pkg/platform/httputil"
	"flighttracker/pkg/platform/middleware/metadata"
	request "flighttracker/pkg/platform/middleware/request"
	"flighttracker/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout bounds every request context.
const DefaultRequestTimeout = 30 * time.Second

const readinessTimeout = 2 * time.Second

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Deps lists everything the router wires together. Nil middleware is skipped.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration

	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler

	APIRoutes   []Registrar
	AdminRoutes []Registrar

	Readiness map[string]ReadinessCheck
}

// NewRouter builds the chi router. /healthz, /readyz and /metrics are public;
// API routes sit behind AuthMiddleware and admin routes behind AdminMiddleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(request.Recovery(logger))
	r.Use(request.Timeout(timeout))
	r.Use(metrics.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(d.Readiness, logger))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if d.AuthMiddleware != nil {
			r.Use(d.AuthMiddleware)
		}
		for _, reg := range d.APIRoutes {
			reg.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		if d.AdminMiddleware != nil {
			r.Use(d.AdminMiddleware)
		}
		for _, reg := range d.AdminRoutes {
			reg.Register(r)
		}
	})
	return r
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readinessHandler(checks map[string]ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := make(map[string]string)
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed",
					"request_id", request.GetRequestID(ctx),
					"check", name,
					"error", err,
				)
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, readinessResponse{Status: "unavailable", Checks: failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, readinessResponse{Status: "ready"})
	}
}
