package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttracker/pkg/domain"
	"flighttracker/pkg/requestcontext"
)

func TestAllowConsumesBurstThenRefills(t *testing.T) {
	now := time.Date(2024, 11, 12, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := New(1, 2, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(clock))

	ok, _ := l.Allow("user:alice")
	assert.True(t, ok)
	ok, _ = l.Allow("user:alice")
	assert.True(t, ok)

	ok, wait := l.Allow("user:alice")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// Separate caller has its own bucket.
	ok, _ = l.Allow("user:bob")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = l.Allow("user:alice")
	assert.True(t, ok)
}

func TestIdleVisitorsAreSwept(t *testing.T) {
	now := time.Date(2024, 11, 12, 10, 0, 0, 0, time.UTC)
	l := New(5, 5, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(func() time.Time { return now }))

	l.Allow("user:alice")
	now = now.Add(idleTTL + sweepEvery)
	l.Allow("user:bob")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, stillThere := l.visitors["user:alice"]
	assert.False(t, stillThere)
	assert.Len(t, l.visitors, 1)
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l := New(0.001, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/flights", nil)
		ctx := requestcontext.WithIdentity(r.Context(), domain.Identity{UserID: "alice"})
		return r.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newReq())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestDisabledLimiterPassesThrough(t *testing.T) {
	l := New(0, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for range 10 {
		ok, _ := l.Allow("ip:1.2.3.4")
		assert.True(t, ok)
	}
}
