package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://example.test/api?a=1", nil)
	lastModified := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		resp       *http.Response
		wantErr    bool
		wantReason string
		wantBody   string
	}{
		{
			name: "response with validators",
			resp: &http.Response{
				Status:     "200 OK",
				StatusCode: 200,
				Header: http.Header{
					"Last-Modified": []string{lastModified.Format(http.TimeFormat)},
					"Etag":          []string{`"abc123"`},
					"Content-Type":  []string{"application/json"},
				},
				Body:    io.NopCloser(bytes.NewReader([]byte(`{"test": "data"}`))),
				Request: req,
			},
			wantReason: "OK",
			wantBody:   `{"test": "data"}`,
		},
		{
			name: "response without status text",
			resp: &http.Response{
				StatusCode: 404,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader(nil)),
			},
			wantReason: "Not Found",
			wantBody:   "",
		},
		{
			name: "response without body",
			resp: &http.Response{
				Status:     "204 No Content",
				StatusCode: 204,
			},
			wantReason: "No Content",
			wantBody:   "",
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			// Verify body was read and restored
			body, _ := io.ReadAll(tt.resp.Body)
			if string(body) != tt.wantBody {
				t.Errorf("restored body = %q, want %q", body, tt.wantBody)
			}
			if string(entry.Data) != tt.wantBody {
				t.Errorf("Data = %q, want %q", entry.Data, tt.wantBody)
			}

			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", entry.Reason, tt.wantReason)
			}
			if entry.Headers == nil {
				t.Error("Headers should never be nil")
			}

			expectedETag := tt.resp.Header.Get("ETag")
			if entry.ETag != expectedETag {
				t.Errorf("ETag = %v, want %v", entry.ETag, expectedETag)
			}
		})
	}
}

func TestResponseToEntry_RequestDetails(t *testing.T) {
	req, _ := http.NewRequest("POST", "https://example.test/api", nil)
	lastModified := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	entry, err := ResponseToEntry(&http.Response{
		Status:     "201 Created",
		StatusCode: 201,
		Header:     http.Header{"Last-Modified": []string{lastModified.Format(http.TimeFormat)}},
		Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
		Request:    req,
	})
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	if entry.Method != "POST" {
		t.Errorf("Method = %q, want POST", entry.Method)
	}
	if entry.URL != "https://example.test/api" {
		t.Errorf("URL = %q, want https://example.test/api", entry.URL)
	}
	if !entry.LastModified.Equal(lastModified) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, lastModified)
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *CacheEntry
		want  bool
	}{
		{
			name:  "nil entry",
			entry: nil,
			want:  false,
		},
		{
			name: "entry with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			want: true,
		},
		{
			name: "entry with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Now(),
			},
			want: true,
		},
		{
			name: "entry without ETag or Last-Modified",
			entry: &CacheEntry{
				Data: []byte("data"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *CacheEntry
		wantHeader string
		wantValue  string
	}{
		{
			name: "add If-None-Match with ETag",
			entry: &CacheEntry{
				ETag: `"abc123"`,
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name: "add If-Modified-Since with Last-Modified",
			entry: &CacheEntry{
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name: "prefer ETag over Last-Modified",
			entry: &CacheEntry{
				ETag:         `"abc123"`,
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "https://example.com", nil)
			AddConditionalHeaders(req, tt.entry)

			got := req.Header.Get(tt.wantHeader)
			if got != tt.wantValue {
				t.Errorf("Header %s = %v, want %v", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestAddConditionalHeaders_NilInputs(t *testing.T) {
	// Should not panic with nil inputs
	AddConditionalHeaders(nil, &CacheEntry{ETag: "test"})
	AddConditionalHeaders(&http.Request{}, nil)
}

func TestMergeRevalidatedHeaders(t *testing.T) {
	entry := &CacheEntry{
		ETag: `"v1"`,
		Headers: http.Header{
			"Content-Type": []string{"application/json"},
			"Etag":         []string{`"v1"`},
		},
	}

	MergeRevalidatedHeaders(entry, http.Header{
		"Etag":         []string{`"v2"`},
		"Content-Type": []string{"text/plain"},
	})

	if entry.ETag != `"v2"` {
		t.Errorf("ETag = %q, want %q", entry.ETag, `"v2"`)
	}
	if entry.Headers.Get("ETag") != `"v2"` {
		t.Errorf("stored ETag header = %q", entry.Headers.Get("ETag"))
	}
	if entry.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type should not be replaced by a 304, got %q", entry.Headers.Get("Content-Type"))
	}
}
