package cart

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by a StateStore when nothing is stored under the key.
var ErrStateNotFound = errors.New("cart state not found")

// StateStore is the durable key-value surface the engine persists into.
// The engine is its only writer.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
}
