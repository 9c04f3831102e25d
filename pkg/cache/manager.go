package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStale indicates the entry exists but has expired. Manager.Get
	// returns the entry alongside it so callers can revalidate it.
	ErrStale = errors.New("cache entry stale")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles expiry-aware caching operations on top of a Backend.
type Manager struct {
	backend Backend
}

// NewManager creates a new cache manager for backend.
func NewManager(backend Backend) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Manager{
		backend: backend,
	}
}

// Backend returns the underlying backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist, and the entry together
// with ErrStale if it has expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	label := string(m.backend.Kind())

	entry, err := m.backend.Get(ctx, key.Hash())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		if errors.Is(err, ErrInvalidEntry) {
			// A corrupt row would otherwise shadow the key forever.
			_ = m.backend.Delete(ctx, key.Hash())
		}
		return nil, err
	}

	if entry.IsExpired() {
		CacheStale.Inc()
		return entry, ErrStale
	}

	CacheHits.WithLabelValues(label).Inc()
	return entry, nil
}

// Set stores a cache entry under key and reports whether it was written.
// Entries that are already expired are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) (bool, error) {
	if entry == nil {
		return false, fmt.Errorf("cache entry cannot be nil")
	}

	if entry.TTL() == 0 {
		// Already expired, don't cache
		return false, nil
	}

	entry.Key = key.Hash()
	if err := m.backend.Set(ctx, entry.Key, entry); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return false, err
	}

	CacheSize.WithLabelValues(string(m.backend.Kind())).Add(float64(entry.Size()))
	return true, nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.backend.Delete(ctx, key.Hash()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// UpdateExpires re-saves entry with a new expiry time.
// This is used when a 304 Not Modified response confirms a stale entry.
func (m *Manager) UpdateExpires(ctx context.Context, key CacheKey, entry *CacheEntry, newExpires time.Time) (bool, error) {
	if entry == nil {
		return false, fmt.Errorf("cache entry cannot be nil")
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}

// Clear removes all entries, or only expired ones.
func (m *Manager) Clear(ctx context.Context, expiredOnly bool) (int64, error) {
	n, err := m.backend.Clear(ctx, expiredOnly)
	if err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return 0, err
	}
	return n, nil
}

// Stats reports backend contents.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	return m.backend.Stats(ctx)
}
