package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"flighttracker/internal/flight/eventlog"
	"flighttracker/internal/flight/models"
	"flighttracker/internal/flight/service"
	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/httputil"
	"flighttracker/pkg/requestcontext"
)

// Service defines the interface for flight operations.
type Service interface {
	Append(ctx context.Context, caller domain.Identity, f *models.Flight) (*eventlog.AppendResult, error)
	Query(ctx context.Context, caller domain.Identity, req service.QueryRequest) (*eventlog.QueryResult, error)
	Get(ctx context.Context, caller domain.Identity, id string) (*models.Flight, error)
	Stats(ctx context.Context, caller domain.Identity, req service.QueryRequest) (*service.Stats, error)
}

// SchemaValidator checks a raw flight body before it is decoded.
type SchemaValidator interface {
	Validate(body []byte) error
}

// Handler wires flight endpoints to the flight service.
type Handler struct {
	service        Service
	schema         SchemaValidator
	logger         *slog.Logger
	appendLimiters []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithAppendMiddleware wraps POST /flights only, e.g. with a per-caller rate limiter.
func WithAppendMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.appendLimiters = append(h.appendLimiters, mw...)
	}
}

// New constructs a flight handler with its dependencies.
func New(service Service, schema SchemaValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		schema:  schema,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts flight endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.appendLimiters...).Post("/flights", h.HandleAppend)
	r.Get("/flights", h.HandleQuery)
	r.Get("/flights/stats", h.HandleStats)
	r.Get("/flights/{id}", h.HandleGet)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller := requestcontext.Identity(r.Context())
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return caller, false
	}
	return caller, true
}

// HandleAppend handles POST /flights requests.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	body, err := httputil.ReadBody(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.schema.Validate(body); err != nil {
		h.logger.WarnContext(ctx, "flight rejected by schema",
			"request_id", requestID,
			"user_id", caller.UserID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	var flight models.Flight
	if err := json.Unmarshal(body, &flight); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid flight"))
		return
	}

	res, err := h.service.Append(ctx, caller, &flight)
	if err != nil {
		h.logError(ctx, "flight append failed", caller, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &AppendResponse{ID: res.ID, PartitionKey: res.PartitionKey})
}

// HandleQuery handles GET /flights requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, err := ParseQueryRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Query(ctx, caller, req)
	if err != nil {
		h.logError(ctx, "flight query failed", caller, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "flights queried",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.UserID,
		"scope", string(req.Scope),
		"matched", res.Matched,
		"returned", len(res.Flights),
		"skipped", res.Skipped,
		"partitions", res.Partitions,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromQueryResult(res))
}

// HandleGet handles GET /flights/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	flight, err := h.service.Get(ctx, caller, chi.URLParam(r, "id"))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logError(ctx, "flight lookup failed", caller, err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, flight)
}

// HandleStats handles GET /flights/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, err := ParseQueryRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.service.Stats(ctx, caller, req)
	if err != nil {
		h.logError(ctx, "flight stats failed", caller, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}

func (h *Handler) logError(ctx context.Context, msg string, caller domain.Identity, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.UserID,
		"error", err,
	)
}
