package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ResponseToEntry converts an HTTP response to a CacheEntry.
// It reads the response body and parses the ETag and Last-Modified headers.
// The response body is restored after reading.
// Key, CreatedAt, Expires and Elapsed are left for the caller to fill in.
func ResponseToEntry(resp *http.Response) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		resp.Body.Close()
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Reason:     ReasonPhrase(resp),
		Headers:    resp.Header.Clone(),
	}
	if entry.Headers == nil {
		entry.Headers = http.Header{}
	}

	if resp.Request != nil {
		entry.Method = resp.Request.Method
		if resp.Request.URL != nil {
			entry.URL = resp.Request.URL.String()
		}
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// ReasonPhrase extracts the reason phrase from resp.Status ("200 OK" -> "OK"),
// falling back to the standard text for the status code.
func ReasonPhrase(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	// We can make a conditional request if we have either ETag or Last-Modified
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// MergeRevalidatedHeaders copies headers from a 304 response onto the entry,
// as a cache must when a stored response is revalidated.
func MergeRevalidatedHeaders(entry *CacheEntry, header http.Header) {
	for _, name := range []string{"Date", "Etag", "Expires", "Cache-Control", "Last-Modified"} {
		if values := header.Values(name); len(values) > 0 {
			entry.Headers[name] = append([]string(nil), values...)
		}
	}
	if etag := header.Get("ETag"); etag != "" {
		entry.ETag = etag
	}
}
