// Package store defines the flat key/value contract the ledger is built
// on: point get/set/has/delete over string keys, nothing else. The
// backing store never expires values and holds no secondary structure;
// everything list-like is emulated above this interface.
package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KV is one pending write in a batch.
type KV struct {
	Key   string
	Value string
}

// Store is the flat key/value namespace the ledger operates on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Has(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	// Apply lands a set of writes and deletes together, so a logical
	// operation's effects are never observed half-applied.
	Apply(ctx context.Context, sets []KV, dels []string) error
}
