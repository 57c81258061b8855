package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned by persisters when no document is stored under a key.
var ErrNotFound = errors.New("state not found")

// Persister stores opaque state documents by key.
type Persister interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
