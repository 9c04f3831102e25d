package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a stored HTTP response.
type CacheEntry struct {
	// Key is the hashed cache key the entry is stored under
	Key string `json:"key"`

	// Method and URL of the request that produced the response
	Method string `json:"method"`
	URL    string `json:"url"`

	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Reason is the status reason phrase (e.g. "OK")
	Reason string `json:"reason"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag,omitempty"`

	// LastModified from the Last-Modified header (If-Modified-Since)
	LastModified time.Time `json:"last_modified,omitempty"`

	// Elapsed is how long the original network round trip took
	Elapsed time.Duration `json:"elapsed"`

	// CreatedAt is when the response was first cached
	CreatedAt time.Time `json:"created_at"`

	// Expires is when the entry becomes stale. The zero time never expires.
	Expires time.Time `json:"expires,omitempty"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	if e.Expires.IsZero() {
		return false
	}
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired and -1 if the entry never expires.
func (e *CacheEntry) TTL() time.Duration {
	if e.Expires.IsZero() {
		return NeverExpire
	}
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Size returns the body size in bytes.
func (e *CacheEntry) Size() int {
	return len(e.Data)
}
