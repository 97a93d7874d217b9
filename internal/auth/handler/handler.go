// Package handler exposes operator endpoints for the token revocation list.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/httputil"
	"flighttracker/pkg/platform/sentinel"
	"flighttracker/pkg/requestcontext"
)

// MaxRevocationTTL bounds how long a token id stays on the list.
const MaxRevocationTTL = 30 * 24 * time.Hour

// Revoker records a revoked token id.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Handler serves admin token operations. Routes must be mounted behind the
// admin token middleware.
type Handler struct {
	revoker Revoker
	logger  *slog.Logger
}

func New(revoker Revoker, logger *slog.Logger) *Handler {
	return &Handler{revoker: revoker, logger: logger}
}

// Register mounts admin token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tokens/revoke", h.HandleRevoke)
}

// RevokeTokenRequest is the HTTP request body for POST /admin/tokens/revoke.
type RevokeTokenRequest struct {
	JTI        string `json:"jti"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// Validate implements httputil.Validatable.
func (r *RevokeTokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.JTI = strings.TrimSpace(r.JTI)
	if r.JTI == "" {
		return dErrors.New(dErrors.CodeValidation, "jti is required")
	}
	if len(r.JTI) > 256 {
		return dErrors.New(dErrors.CodeValidation, "jti must be at most 256 characters")
	}
	if r.TTLSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be positive")
	}
	if r.TTL() > MaxRevocationTTL {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds exceeds 30 days")
	}
	return nil
}

// TTL returns the requested lifetime of the revocation entry.
func (r *RevokeTokenRequest) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// HandleRevoke handles POST /admin/tokens/revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if h.revoker == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "token revocation is not configured"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RevokeTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.revoker.RevokeToken(ctx, req.JTI, req.TTL()); err != nil {
		h.logger.ErrorContext(ctx, "token revocation failed",
			"request_id", requestID,
			"jti", req.JTI,
			"error", err,
		)
		httputil.WriteError(w, translate(err))
		return
	}

	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"jti", req.JTI,
		"ttl_seconds", req.TTLSeconds,
	)
	w.WriteHeader(http.StatusNoContent)
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid revocation request")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation list unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "token revocation failed")
	}
}
