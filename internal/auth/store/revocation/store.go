// Package revocation holds token revocation lists keyed by JWT id.
package revocation

import (
	"context"
	"time"
)

// TokenRevocationList records revoked token ids until they would have expired.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Checker adapts a TokenRevocationList to the auth middleware.
type Checker struct {
	list TokenRevocationList
}

func NewChecker(list TokenRevocationList) *Checker {
	return &Checker{list: list}
}

func (c *Checker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return c.list.IsRevoked(ctx, jti)
}
