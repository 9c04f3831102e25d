package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(newTestBackend(t))
}

func TestNewManager(t *testing.T) {
	backend := newTestBackend(t)

	manager := NewManager(backend)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.Backend() != backend {
		t.Error("Manager backend not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil backend")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	key := CacheKey{Method: "GET", URL: "https://example.test/api"}

	entry := &CacheEntry{
		Data:       []byte(`{"test": "data"}`),
		ETag:       `"abc123"`,
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		CreatedAt:  time.Now(),
		Expires:    time.Now().Add(5 * time.Minute),
	}

	if _, err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if entry.Key != key.Hash() {
		t.Errorf("Set should stamp the entry key: got %q", entry.Key)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}
	if retrieved.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode mismatch: got %d, want %d", retrieved.StatusCode, entry.StatusCode)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Get(context.Background(), CacheKey{URL: "https://example.test/nonexistent"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_StaleEntry(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	key := CacheKey{URL: "https://example.test/stale"}

	// Write directly to the backend: Manager.Set refuses expired entries.
	stale := &CacheEntry{
		Data:      []byte(`{"old": true}`),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		Expires:   time.Now().Add(-1 * time.Hour),
	}
	if err := manager.Backend().Set(ctx, key.Hash(), stale); err != nil {
		t.Fatal(err)
	}

	entry, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale, got %v", err)
	}
	if entry == nil || string(entry.Data) != `{"old": true}` {
		t.Errorf("stale lookups must return the entry, got %+v", entry)
	}
}

func TestManager_Set_ExpiredEntry(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	key := CacheKey{URL: "https://example.test/expired"}

	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}

	// Set should not cache expired entries
	stored, err := manager.Set(ctx, key, entry)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if stored {
		t.Error("Set reported an expired entry as stored")
	}

	_, err = manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Set_NeverExpires(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	key := CacheKey{URL: "https://example.test/forever"}

	stored, err := manager.Set(ctx, key, &CacheEntry{Data: []byte("x"), CreatedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if !stored {
		t.Error("Set reported an entry without expiry as not stored")
	}
	if _, err := manager.Get(ctx, key); err != nil {
		t.Errorf("entries without expiry must be fresh, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	key := CacheKey{URL: "https://example.test/delete"}

	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if _, err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_UpdateExpires(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	key := CacheKey{URL: "https://example.test/revalidate"}

	entry := &CacheEntry{
		Data:      []byte(`{"test": "data"}`),
		CreatedAt: time.Now().Add(-time.Hour),
		Expires:   time.Now().Add(-time.Minute),
	}
	if err := manager.Backend().Set(ctx, key.Hash(), entry); err != nil {
		t.Fatal(err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if stored, err := manager.UpdateExpires(ctx, key, entry, newExpires); err != nil || !stored {
		t.Fatalf("UpdateExpires = %v, %v; want stored", stored, err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after UpdateExpires failed: %v", err)
	}

	diff := retrieved.Expires.Sub(newExpires)
	if diff < -1*time.Second || diff > 1*time.Second {
		t.Errorf("Expires time not updated correctly: got %v, want %v (diff: %v)",
			retrieved.Expires, newExpires, diff)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.Set(context.Background(), CacheKey{URL: "https://example.test"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_ClearAndStats(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	for _, u := range []string{"https://example.test/a", "https://example.test/b"} {
		if _, err := manager.Set(ctx, CacheKey{URL: u}, &CacheEntry{Data: []byte("x"), CreatedAt: time.Now(), Expires: time.Now().Add(time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := manager.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}

	removed, err := manager.Clear(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Clear removed %d, want 2", removed)
	}
}
