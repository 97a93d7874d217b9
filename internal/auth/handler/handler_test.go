package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttracker/internal/auth/store/revocation"
	"flighttracker/pkg/platform/middleware/admin"
	"flighttracker/pkg/platform/sentinel"
	"flighttracker/pkg/testutil"
)

const adminToken = "operator-secret"

type failingRevoker struct{ err error }

func (f failingRevoker) RevokeToken(context.Context, string, time.Duration) error { return f.err }

func newRouter(revoker Revoker) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, logger))
		New(revoker, logger).Register(r)
	})
	return r
}

func revokeRequest(t *testing.T, body string) *http.Request {
	req := testutil.NewRequestWithBody(t, http.MethodPost, "/admin/tokens/revoke", body)
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	return req
}

func TestHandleRevoke(t *testing.T) {
	t.Run("revokes the token id", func(t *testing.T) {
		trl := revocation.NewInMemoryTRL()
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/tokens/revoke", RevokeTokenRequest{JTI: "tok-1", TTLSeconds: 60})
		req.Header.Set(admin.HeaderAdminToken, adminToken)
		rr := testutil.DoRequest(newRouter(trl), req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		revoked, err := trl.IsRevoked(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("requires the admin token", func(t *testing.T) {
		body := testutil.MustMarshal(t, RevokeTokenRequest{JTI: "tok-1", TTLSeconds: 60})
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/admin/tokens/revoke", body)
		rr := testutil.DoRequest(newRouter(revocation.NewInMemoryTRL()), req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, "unauthorized")
	})

	t.Run("validates the body", func(t *testing.T) {
		for _, body := range []string{
			`{"ttl_seconds":60}`,
			`{"jti":"  ","ttl_seconds":60}`,
			`{"jti":"tok-1"}`,
			`{"jti":"tok-1","ttl_seconds":-5}`,
			`{"jti":"tok-1","ttl_seconds":99999999}`,
		} {
			rr := testutil.DoRequest(newRouter(revocation.NewInMemoryTRL()), revokeRequest(t, body))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		}
	})

	t.Run("store outage is unavailable", func(t *testing.T) {
		revoker := failingRevoker{err: fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, errors.New("dial tcp"))}
		rr := testutil.DoRequest(newRouter(revoker), revokeRequest(t, `{"jti":"tok-1","ttl_seconds":60}`))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "service_unavailable")
	})

	t.Run("no revocation list configured", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(nil), revokeRequest(t, `{"jti":"tok-1","ttl_seconds":60}`))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	})
}
