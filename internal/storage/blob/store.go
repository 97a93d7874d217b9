// Package blob holds the object stores flight partitions are persisted in.
//
// Every backend offers the same three operations: whole-object Get, whole-object
// Put and prefix List. None of them support append; callers that need one
// perform read-modify-write on top.
package blob

import (
	"context"
	"fmt"
	"strings"

	"flighttracker/pkg/platform/sentinel"
)

// Store is a flat key/value object store.
type Store interface {
	// Get returns the object's content, or an error wrapping
	// sentinel.ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the object's content in a single write.
	Put(ctx context.Context, key string, data []byte) error
	// List returns all keys beginning with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ValidateKey rejects keys that could escape a store's namespace.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key: %w", sentinel.ErrInvalidState)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key %q: %w", key, sentinel.ErrInvalidState)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid key %q: %w", key, sentinel.ErrInvalidState)
		}
	}
	return nil
}
