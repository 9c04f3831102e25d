package cache

import (
	"errors"
	"fmt"
	"time"
)

// BackendKind names a durable cache backend implementation.
type BackendKind string

const (
	// BackendSQLite stores responses in a SQLite database file.
	BackendSQLite BackendKind = "sqlite"
)

// Defaults applied by Resolve to unset options.
const (
	DefaultName        = "default_cache"
	DefaultDir         = ".cache"
	DefaultBackend     = BackendSQLite
	DefaultExpireAfter = 900 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// NeverExpire stores entries without an expiry time.
const NeverExpire time.Duration = -1

// allowedBackends is the backend allow-list. Anything else fails closed.
var allowedBackends = map[BackendKind]bool{
	BackendSQLite: true,
}

var (
	// ErrUnsupportedBackend is matched by ConfigErrors for unknown backend kinds.
	ErrUnsupportedBackend = errors.New("unsupported backend kind")

	// ErrEmptyName is matched by ConfigErrors for a missing cache name.
	ErrEmptyName = errors.New("cache name cannot be empty")

	// ErrInvalidExpiry is matched by ConfigErrors for negative expiry durations.
	ErrInvalidExpiry = errors.New("invalid expiry duration")

	// ErrEmptyURL is matched by ConfigErrors for a request without a URL.
	ErrEmptyURL = errors.New("url cannot be empty")
)

// ConfigError reports an invalid or unsupported configuration value.
// It is never retried.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Options are the named settings a caller provides for one logical API.
// Zero values are replaced by the package defaults.
type Options struct {
	// Dir is the storage directory (default ".cache").
	Dir string

	// Name identifies the cache inside Dir (default "default_cache").
	Name string

	// Backend is the backend kind (default "sqlite").
	Backend string

	// ExpireAfter is how long stored responses stay fresh (default 900s).
	// NeverExpire disables expiry; a zero value selects the default,
	// use DisableStore to keep nothing.
	ExpireAfter time.Duration

	// DisableStore resolves to an ExpireAfter of zero: responses are
	// never written to the cache.
	DisableStore bool

	// UseCache enables the cache read/write path (default true).
	UseCache *bool

	// Timeout bounds how long the backend waits on a locked database (default 30s).
	Timeout time.Duration
}

// CacheConfig is a resolved, immutable cache configuration.
type CacheConfig struct {
	Dir         string
	Name        string
	Backend     BackendKind
	ExpireAfter time.Duration
	UseCache    bool
	Timeout     time.Duration
}

// Resolve validates options and produces a CacheConfig.
// It performs no I/O; directories are created when the backend is opened.
func Resolve(opts Options) (CacheConfig, error) {
	cfg := CacheConfig{
		Dir:         opts.Dir,
		Name:        opts.Name,
		Backend:     BackendKind(opts.Backend),
		ExpireAfter: opts.ExpireAfter,
		UseCache:    true,
		Timeout:     opts.Timeout,
	}

	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if opts.DisableStore {
		cfg.ExpireAfter = 0
	} else if cfg.ExpireAfter == 0 {
		cfg.ExpireAfter = DefaultExpireAfter
	}
	if opts.UseCache != nil {
		cfg.UseCache = *opts.UseCache
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if err := cfg.Validate(); err != nil {
		return CacheConfig{}, err
	}

	return cfg, nil
}

// Validate checks a CacheConfig built without Resolve.
func (c CacheConfig) Validate() error {
	if !allowedBackends[c.Backend] {
		return &ConfigError{Field: "backend", Value: string(c.Backend), Err: ErrUnsupportedBackend}
	}
	if c.Name == "" {
		return &ConfigError{Field: "cache_name", Err: ErrEmptyName}
	}
	if c.ExpireAfter < 0 && c.ExpireAfter != NeverExpire {
		return &ConfigError{Field: "expire_after", Value: c.ExpireAfter.String(), Err: ErrInvalidExpiry}
	}
	return nil
}

// Location is the physical address of the cache: Dir and Name joined by "/".
// Configs with the same Dir and Name share one durable store.
// Resolve always sets Dir; an empty Dir only occurs in configs built by
// hand, which then resolve relative to the working directory.
func (c CacheConfig) Location() string {
	if c.Dir == "" {
		return c.Name
	}
	return c.Dir + "/" + c.Name
}

// StoresResponses reports whether responses fetched under this config are written to the cache.
func (c CacheConfig) StoresResponses() bool {
	return c.UseCache && c.ExpireAfter != 0
}

// ExpiresAt returns the expiry time for an entry created at t.
// The zero time means the entry never expires.
func (c CacheConfig) ExpiresAt(t time.Time) time.Time {
	if c.ExpireAfter == NeverExpire {
		return time.Time{}
	}
	return t.Add(c.ExpireAfter)
}

// Bool returns a pointer to b, for Options.UseCache.
func Bool(b bool) *bool {
	return &b
}
