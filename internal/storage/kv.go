// Package storage persists the ledger and target collections as whole JSON
// blobs in a key-value backend. Every save rewrites the entire collection.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// KV is a minimal key-value backend.
type KV interface {
	// Get returns the stored value. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put replaces the value under key and returns the key's new version.
	Put(ctx context.Context, key string, value []byte) (version int64, err error)

	// Delete removes the given keys. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close releases backend resources.
	Close() error
}

var ErrInvalidKey = errors.New("invalid storage key")

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) || strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
