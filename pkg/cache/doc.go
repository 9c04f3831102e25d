// Package cache provides durable HTTP response caching with a SQLite backend.
//
// The package covers:
//
// - Resolving named cache options into an immutable CacheConfig
// - Deterministic cache key generation (method, normalized URL, body)
// - A Backend interface and its SQLite implementation
// - An expiry-aware Manager that distinguishes misses from stale entries
// - ETag / Last-Modified helpers for revalidating stale entries
// - Prometheus metrics for observability
//
// # Resolving a configuration
//
//	cfg, err := cache.Resolve(cache.Options{
//		Dir:         ".cache",
//		Name:        "random_user_api",
//		Backend:     "sqlite",
//		ExpireAfter: 15 * time.Minute,
//	})
//	if err != nil {
//		// *cache.ConfigError, e.g. errors.Is(err, cache.ErrUnsupportedBackend)
//	}
//
//	cfg.Location() // ".cache/random_user_api"
//
// Two configs with the same Dir and Name address the same durable store,
// which is how repeated runs share a cache.
//
// # Basic Usage
//
//	backend, err := cache.OpenBackend(cfg)
//	if err != nil {
//		return err
//	}
//	defer backend.Close()
//
//	manager := cache.NewManager(backend)
//	key := cache.CacheKey{Method: "GET", URL: "https://randomuser.me/api/"}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from the network
//	case errors.Is(err, cache.ErrStale):
//		// entry is set; revalidate it or serve it on error
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 response confirms the stored entry
//	}
//
// # Metrics
//
//   - reqcache_cache_hits_total{backend="sqlite"} - Fresh cache hits
//   - reqcache_cache_misses_total - Cache misses
//   - reqcache_cache_stale_total - Expired entries found
//   - reqcache_cache_size_bytes{backend="sqlite"} - Bytes written
//   - reqcache_304_responses_total - Successful revalidations
//   - reqcache_conditional_requests_total - Conditional requests sent
//   - reqcache_cache_errors_total{operation} - Cache operation errors
package cache
