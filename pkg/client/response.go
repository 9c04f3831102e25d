package client

import (
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/reqcache/pkg/cache"
)

var bodyJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Header is a single response header. Names are lowercase.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Headers is an ordered header list, sorted by name.
type Headers []Header

// NewHeaders flattens an http.Header into Headers. Multiple values
// for one name are joined with ", ".
func NewHeaders(h http.Header) Headers {
	headers := make(Headers, 0, len(h))
	for name, values := range h {
		headers = append(headers, Header{
			Name:  strings.ToLower(name),
			Value: strings.Join(values, ", "),
		})
	}
	sort.Slice(headers, func(i, j int) bool {
		return headers[i].Name < headers[j].Name
	})
	return headers
}

// Get returns the value for name, case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, header := range h {
		if header.Name == name {
			return header.Value, true
		}
	}
	return "", false
}

// Map returns the headers as a plain map.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, header := range h {
		m[header.Name] = header.Value
	}
	return m
}

// Response is the normalized result of a Get or Post call.
// It has the same fields whether it was served from the cache,
// revalidated, or fetched from the network.
type Response struct {
	URL        string  `json:"url" yaml:"url"`
	Method     string  `json:"method" yaml:"method"`
	StatusCode int     `json:"status_code" yaml:"status_code"`
	Reason     string  `json:"reason" yaml:"reason"`
	OK         bool    `json:"ok" yaml:"ok"`
	Content    any     `json:"content" yaml:"content"`
	Headers    Headers `json:"headers" yaml:"headers"`
	Encoding   string  `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Size       int     `json:"size" yaml:"size"`

	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`

	// CreatedAt and Expires are nil unless the response lives in the cache.
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Expires   *time.Time `json:"expires,omitempty" yaml:"expires,omitempty"`

	FromCache   bool `json:"from_cache" yaml:"from_cache"`
	Revalidated bool `json:"revalidated" yaml:"revalidated"`
}

// ToMap converts the response into a plain map, one key per field.
func (r *Response) ToMap() map[string]any {
	m := map[string]any{
		"url":         r.URL,
		"method":      r.Method,
		"status_code": r.StatusCode,
		"reason":      r.Reason,
		"ok":          r.OK,
		"content":     r.Content,
		"headers":     r.Headers.Map(),
		"encoding":    r.Encoding,
		"size":        r.Size,
		"elapsed":     r.Elapsed,
		"created_at":  nil,
		"expires":     nil,
		"from_cache":  r.FromCache,
		"revalidated": r.Revalidated,
	}
	if r.CreatedAt != nil {
		m["created_at"] = *r.CreatedAt
	}
	if r.Expires != nil {
		m["expires"] = *r.Expires
	}
	return m
}

// result is what a session hands back for normalization.
type result struct {
	entry *cache.CacheEntry

	// cached is true when entry is stored in the backend
	cached      bool
	fromCache   bool
	revalidated bool
}

// normalize builds a Response from a session result. When caching is
// disabled for the call, cache fields are forced to their empty values.
func normalize(res *result, useCache bool) (*Response, error) {
	entry := res.entry

	content, err := decodeContent(entry.Data)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		URL:        entry.URL,
		Method:     entry.Method,
		StatusCode: entry.StatusCode,
		Reason:     entry.Reason,
		OK:         entry.StatusCode < http.StatusBadRequest,
		Content:    content,
		Headers:    NewHeaders(entry.Headers),
		Size:       entry.Size(),
		Elapsed:    entry.Elapsed,
	}
	if contentType, ok := resp.Headers.Get("content-type"); ok {
		resp.Encoding = charset(contentType)
	}

	if !useCache {
		return resp, nil
	}

	resp.FromCache = res.fromCache
	resp.Revalidated = res.revalidated
	if res.cached {
		created := entry.CreatedAt
		resp.CreatedAt = &created
		if !entry.Expires.IsZero() {
			expires := entry.Expires
			resp.Expires = &expires
		}
	}

	return resp, nil
}

// decodeContent parses a UTF-8 JSON body. An empty body yields nil.
func decodeContent(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: body is not valid UTF-8", ErrDecode)
	}

	var content any
	if err := bodyJSON.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return content, nil
}

// charset returns the charset parameter of a Content-Type value.
func charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
