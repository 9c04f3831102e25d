package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/reqcache/pkg/cache"
)

// session binds one call to a cache backend. It is opened per call and
// always closed before the call returns.
type session struct {
	client  *Client
	cfg     cache.CacheConfig
	manager *cache.Manager // nil when the call does not store responses
	logger  zerolog.Logger
}

// openSession opens the backend at cfg.Location(). When the config does
// not store responses (UseCache false or an expiry of zero) the backend is
// not touched at all, so entries written under other configs at the same
// location are neither served nor revalidated.
func (c *Client) openSession(cfg cache.CacheConfig) (*session, error) {
	s := &session{
		client: c,
		cfg:    cfg,
		logger: c.logger.With().Str("cache", cfg.Location()).Logger(),
	}

	if cfg.StoresResponses() {
		backend, err := cache.OpenBackend(cfg)
		if err != nil {
			return nil, err
		}
		s.manager = cache.NewManager(backend)
	}

	c.openSessions.Add(1)
	openSessionsGauge.Inc()
	return s, nil
}

func (s *session) close() {
	if s.manager != nil {
		if err := s.manager.Backend().Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close cache backend")
		}
	}
	s.client.openSessions.Add(-1)
	openSessionsGauge.Dec()
}

// do executes the request, consulting and updating the cache as allowed.
//
// A fresh entry is served without contacting the network. A stale entry
// with validators is revalidated with a conditional request; on a transport
// failure or 5xx it is served as-is when StaleIfError is set.
func (s *session) do(ctx context.Context, method, rawURL string, payload []byte, contentType string) (*result, error) {
	key := cache.CacheKey{Method: method, URL: rawURL, Body: payload}
	cacheable := s.manager != nil && s.client.methodAllowed(method)
	logger := s.logger.With().Str("method", method).Str("url", rawURL).Logger()

	var stale *cache.CacheEntry
	if cacheable {
		entry, err := s.manager.Get(ctx, key)
		switch {
		case err == nil:
			logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cache hit")
			return &result{entry: entry, cached: true, fromCache: true}, nil
		case errors.Is(err, cache.ErrStale):
			logger.Debug().Str("key", key.String()).Msg("Cache entry stale")
			stale = entry
		case errors.Is(err, cache.ErrCacheMiss):
			logger.Debug().Str("key", key.String()).Msg("Cache miss")
		default:
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader(payload))
	if err != nil {
		return nil, s.client.fail(method, rawURL, ErrorClassNetwork, err)
	}
	req.Header.Set("User-Agent", s.client.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if stale != nil && cache.ShouldMakeConditionalRequest(stale) {
		cache.AddConditionalHeaders(req, stale)
		cache.ConditionalRequestsSent.Inc()
		logger.Debug().Str("etag", stale.ETag).Msg("Making conditional request")
	}

	startTime := time.Now()
	resp, err := s.client.httpClient.Do(req)
	elapsed := time.Since(startTime)
	if err != nil {
		if stale != nil && s.client.config.StaleIfError {
			logger.Warn().Err(err).Msg("Request failed, serving stale cache entry")
			return &result{entry: stale, cached: true, fromCache: true}, nil
		}
		return nil, s.client.fail(method, rawURL, classifyTransportError(err), err)
	}
	defer resp.Body.Close()

	now := time.Now()

	if resp.StatusCode == http.StatusNotModified && stale != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		cache.NotModifiedResponses.Inc()
		cache.MergeRevalidatedHeaders(stale, resp.Header)
		stored, err := s.manager.UpdateExpires(ctx, key, stale, s.cfg.ExpiresAt(now))
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to update cache expiry")
		}
		logger.Debug().Msg("304 Not Modified - using cache")
		return &result{entry: stale, cached: stored, fromCache: true, revalidated: true}, nil
	}

	if resp.StatusCode >= http.StatusInternalServerError && stale != nil && s.client.config.StaleIfError {
		_, _ = io.Copy(io.Discard, resp.Body)
		logger.Warn().Int("status_code", resp.StatusCode).Msg("Server error, serving stale cache entry")
		return &result{entry: stale, cached: true, fromCache: true}, nil
	}

	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		return nil, s.client.fail(method, rawURL, classifyTransportError(err), err)
	}
	entry.Method = method
	if entry.URL == "" {
		entry.URL = rawURL
	}
	entry.Elapsed = elapsed
	entry.CreatedAt = now
	entry.Expires = s.cfg.ExpiresAt(now)

	res := &result{entry: entry}
	if cacheable && s.client.codeAllowed(resp.StatusCode) && storable(entry.Data) {
		stored, err := s.manager.Set(ctx, key, entry)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Failed to cache response")
		case stored:
			res.cached = true
			logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cached response")
		}
	}

	return res, nil
}

// storable reports whether a body can later be normalized; bodies that
// would fail decoding are not written to the cache.
func storable(data []byte) bool {
	_, err := decodeContent(data)
	return err == nil
}
