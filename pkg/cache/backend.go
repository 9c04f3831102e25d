package cache

import (
	"context"
	"fmt"
)

// Backend is a durable key-value store for cache entries.
// Implementations rely on their own locking for cross-process safety.
type Backend interface {
	// Kind reports which backend this is (used as a metric label).
	Kind() BackendKind

	// Get returns the entry stored under key, expired or not.
	// Returns ErrCacheMiss if there is none.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores an entry under key, replacing any previous one.
	Set(ctx context.Context, key string, entry *CacheEntry) error

	// Delete removes the entry stored under key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries, or only expired ones.
	Clear(ctx context.Context, expiredOnly bool) (int64, error)

	// Stats reports entry counts and stored bytes.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying handle.
	Close() error
}

// Stats reports the contents of a backend.
type Stats struct {
	Entries int64 `json:"entries" yaml:"entries"`
	Expired int64 `json:"expired" yaml:"expired"`
	Bytes   int64 `json:"bytes" yaml:"bytes"`
}

// OpenBackend opens (or attaches to) the durable store at cfg.Location().
// Opening the same location twice reuses the existing store.
func OpenBackend(cfg CacheConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSQLite:
		return OpenSQLite(cfg.Location(), cfg.Timeout)
	default:
		// Unreachable while the allow-list and this switch agree.
		return nil, fmt.Errorf("open backend: %w", &ConfigError{Field: "backend", Value: string(cfg.Backend), Err: ErrUnsupportedBackend})
	}
}
