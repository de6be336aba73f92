// Package store provides durable key/value storage for bus snapshots.
package store

import "errors"

// Store persists opaque blobs under fixed keys. Implementations must be
// safe for concurrent use.
type Store interface {
	// Save stores data under key, overwriting any previous value.
	Save(key string, data []byte) error

	// Load retrieves the value for key.
	// Returns ErrNotFound if the key doesn't exist.
	Load(key string) ([]byte, error)

	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the key doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
