package cache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached response.
type CacheKey struct {
	// Method is the HTTP method (e.g., "GET")
	Method string

	// URL is the full request URL including query parameters
	URL string

	// Body is the request body; POST requests with different bodies
	// are cached separately
	Body []byte
}

// String generates a deterministic, human readable cache key.
// Format: METHOD:scheme://host/path?sorted=query[:body=<sha256 prefix>]
//
// Example:
//
//	GET:https://randomuser.me/api/?gender=female&results=5
func (k CacheKey) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}

	parts := []string{method, normalizeURL(k.URL)}

	if len(k.Body) > 0 {
		sum := sha256.Sum256(k.Body)
		parts = append(parts, fmt.Sprintf("body=%x", sum[:8]))
	}

	return strings.Join(parts, ":")
}

// Hash returns the SHA-256 of the method, normalized URL and full body.
// It is the primary key used by backends.
func (k CacheKey) Hash() string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(k.Method)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeURL(k.URL)))
	h.Write([]byte{0})
	h.Write(k.Body)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// normalizeURL lowercases scheme and host, sorts query parameters
// and drops the fragment. Unparseable URLs are returned unchanged.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			values := append([]string(nil), query[key]...)
			sort.Strings(values)
			for _, value := range values {
				pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	return u.String()
}
