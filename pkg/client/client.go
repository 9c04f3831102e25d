// Package client provides a cache-backed HTTP client that returns
// normalized responses.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/reqcache/pkg/cache"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqcache_requests_total",
		Help: "Total requests by method and status (or cache outcome)",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reqcache_request_duration_seconds",
		Help:    "Request duration in seconds by method, cache hits included",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqcache_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})

	openSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reqcache_open_sessions",
		Help: "Cache sessions currently open",
	})
)

// Client performs GET and POST requests through a durable cache.
// It keeps no per-request state; every call opens and closes its own session.
type Client struct {
	httpClient   *http.Client
	config       Config
	logger       zerolog.Logger
	openSessions atomic.Int64
}

// Config holds the client configuration.
type Config struct {
	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client

	// Timeout for a single network request, used when HTTPClient is nil.
	Timeout time.Duration

	// User-Agent header sent with every request
	UserAgent string

	// StaleIfError serves an expired entry when the network request fails
	StaleIfError bool

	// AllowableMethods are the methods whose responses are cached
	AllowableMethods []string

	// AllowableCodes are the status codes whose responses are cached
	AllowableCodes []int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		UserAgent:        "reqcache/" + Version,
		StaleIfError:     true,
		AllowableMethods: []string{http.MethodGet, http.MethodPost},
		AllowableCodes:   []int{http.StatusOK},
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.With().Str("component", "reqcache-client").Logger(),
	}, nil
}

// Get performs a GET request to rawURL using the cache described by cfg.
func (c *Client) Get(ctx context.Context, cfg cache.CacheConfig, rawURL string) (*Response, error) {
	return c.Do(ctx, cfg, http.MethodGet, rawURL, nil)
}

// Post performs a POST request to rawURL. body may be nil, []byte,
// string, url.Values (form encoded) or any JSON-encodable value.
func (c *Client) Post(ctx context.Context, cfg cache.CacheConfig, rawURL string, body any) (*Response, error) {
	return c.Do(ctx, cfg, http.MethodPost, rawURL, body)
}

// Do performs a request through a fresh cache session and returns the
// normalized response. The session is closed before Do returns.
func (c *Client) Do(ctx context.Context, cfg cache.CacheConfig, method, rawURL string, body any) (*Response, error) {
	if rawURL == "" {
		return nil, &cache.ConfigError{Field: "url", Err: cache.ErrEmptyURL}
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &cache.ConfigError{Field: "url", Value: rawURL, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, c.fail(method, rawURL, ErrorClassEncode, err)
	}

	sess, err := c.openSession(cfg)
	if err != nil {
		return nil, c.fail(method, rawURL, ErrorClassCache, err)
	}
	defer sess.close()

	res, err := sess.do(ctx, method, rawURL, payload, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := normalize(res, cfg.UseCache)
	if err != nil {
		return nil, c.fail(method, rawURL, ErrorClassDecode, err)
	}

	status := strconv.Itoa(resp.StatusCode)
	if resp.FromCache {
		status = "cache"
	}
	requestsTotal.WithLabelValues(method, status).Inc()

	c.logger.Info().
		Str("method", method).
		Str("url", rawURL).
		Int("status_code", resp.StatusCode).
		Bool("from_cache", resp.FromCache).
		Bool("revalidated", resp.Revalidated).
		Msg("Request complete")

	return resp, nil
}

// OpenSessions returns the number of cache sessions currently open.
func (c *Client) OpenSessions() int64 {
	return c.openSessions.Load()
}

// fail builds, logs and counts a RequestError.
func (c *Client) fail(method, rawURL string, class ErrorClass, err error) error {
	errorsTotal.WithLabelValues(string(class)).Inc()
	c.logger.Error().
		Err(err).
		Str("method", method).
		Str("url", rawURL).
		Str("error_class", string(class)).
		Msg("Request failed")

	return &RequestError{
		Method: method,
		URL:    rawURL,
		Class:  class,
		Err:    err,
	}
}

func (c *Client) methodAllowed(method string) bool {
	for _, m := range c.config.AllowableMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (c *Client) codeAllowed(code int) bool {
	for _, allowed := range c.config.AllowableCodes {
		if allowed == code {
			return true
		}
	}
	return false
}

// encodeBody turns a POST body into bytes and a Content-Type.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return data, "", nil
	default:
		data, err := bodyJSON.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return data, "application/json", nil
	}
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}
