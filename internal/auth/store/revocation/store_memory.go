package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flighttracker/pkg/platform/sentinel"
)

// InMemoryTRL keeps revoked token ids in process. Entries expire after their
// TTL and are swept lazily. Suitable for single-instance deployments and tests.
type InMemoryTRL struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// InMemoryOption configures an InMemoryTRL.
type InMemoryOption func(*InMemoryTRL)

// WithClock overrides the time source.
func WithClock(now func() time.Time) InMemoryOption {
	return func(t *InMemoryTRL) {
		t.now = now
	}
}

func NewInMemoryTRL(opts ...InMemoryOption) *InMemoryTRL {
	trl := &InMemoryTRL{revoked: make(map[string]time.Time), now: time.Now}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("jti is required: %w", sentinel.ErrInvalidState)
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.sweep(now)
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if !t.now().Before(expiry) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (t *InMemoryTRL) sweep(now time.Time) {
	for jti, expiry := range t.revoked {
		if !now.Before(expiry) {
			delete(t.revoked, jti)
		}
	}
}
