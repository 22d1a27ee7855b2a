// Package kvstore holds the key-value backends the record store is persisted in.
// Every backend stores opaque byte values under string keys and offers an atomic
// read-modify-write so callers never lose a concurrent update.
package kvstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("concurrent update conflict")
)

// UpdateFunc receives the current value (nil when the key is absent) and returns the
// value to store.
type UpdateFunc func(current []byte) ([]byte, error)

type Store interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update applies fn atomically with respect to other Update and Set calls on the
	// same backend. An error returned by fn aborts the write and is returned as is.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}
