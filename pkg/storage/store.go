// Package storage provides the keyed text store behind persistent bindings.
//
// A Store is a flat namespace of string keys to string values, shared by
// every binding in the process and, through the relay, by other processes.
// Backends: in-memory (default), SQL (PostgreSQL, MySQL, SQLite), and S3.
//
// Writes are announced on an event bus rather than coordinated with locks;
// consumers re-read on notification, so consistency across bindings is
// eventual with last-write-wins semantics.
package storage

import "context"

// Store is a keyed text store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key. The bool reports whether the key
	// exists; absence is not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists all keys currently in the store.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Change describes a store mutation. An empty Key means the whole store may
// have changed and every consumer should refresh.
type Change struct {
	Key string `json:"key"`
}

// Event names for store change notifications.
//
// EventLocal is emitted by the writer itself so that other bindings in the
// same process observe the change (the backing store does not announce its
// own writes). EventRemote is emitted by the relay for changes that
// originated in another process.
const (
	EventLocal  = "storage.local"
	EventRemote = "storage.remote"
)

// Matches reports whether the change affects the given key.
// A change with no key affects every key.
func (c Change) Matches(key string) bool {
	return c.Key == "" || c.Key == key
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "storage: store is closed"
}
