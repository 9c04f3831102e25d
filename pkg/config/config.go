// Package config loads reqcache settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/reqcache/pkg/cache"
	"github.com/Sternrassler/reqcache/pkg/client"
	"github.com/Sternrassler/reqcache/pkg/logging"
)

// ErrUnknownAPI is returned by Config.API for names not in the file.
var ErrUnknownAPI = errors.New("unknown api")

// Config holds all reqcache configuration.
type Config struct {
	Log    LogConfig            `yaml:"log"`
	Client ClientConfig         `yaml:"client"`
	APIs   map[string]APIConfig `yaml:"apis"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ClientConfig overrides client defaults. Zero values keep the default.
type ClientConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	StaleIfError *bool         `yaml:"stale_if_error"`
}

// APIConfig is one named API: its URL and the cache it is fetched through.
//
// ExpireAfter accepts a duration ("15m"), "never" to store without
// expiry, or "0" to disable storing. Empty selects the default.
type APIConfig struct {
	URL         string        `yaml:"url"`
	CacheName   string        `yaml:"cache_name"`
	CacheDir    string        `yaml:"cache_dir"`
	Backend     string        `yaml:"backend"`
	ExpireAfter string        `yaml:"expire_after"`
	UseCache    *bool         `yaml:"use_cache"`
	Timeout     time.Duration `yaml:"backend_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		APIs: map[string]APIConfig{},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.APIs == nil {
		cfg.APIs = map[string]APIConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the log level and resolves every API's cache settings.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config log: %w", err)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("config client: timeout must be >= 0 (got %s)", c.Client.Timeout)
	}
	for _, name := range c.APINames() {
		if _, err := c.APIs[name].Resolve(); err != nil {
			return fmt.Errorf("config api %q: %w", name, err)
		}
	}
	return nil
}

// APINames returns the configured API names in sorted order.
func (c *Config) APINames() []string {
	names := make([]string, 0, len(c.APIs))
	for name := range c.APIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// API looks up a named API.
func (c *Config) API(name string) (APIConfig, error) {
	api, ok := c.APIs[name]
	if !ok {
		return APIConfig{}, fmt.Errorf("%w %q", ErrUnknownAPI, name)
	}
	return api, nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// ClientConfig applies the client section over client.DefaultConfig.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	if c.Client.UserAgent != "" {
		cfg.UserAgent = c.Client.UserAgent
	}
	if c.Client.Timeout > 0 {
		cfg.Timeout = c.Client.Timeout
	}
	if c.Client.StaleIfError != nil {
		cfg.StaleIfError = *c.Client.StaleIfError
	}
	return cfg
}

// Options converts the API's cache settings into cache.Options.
func (a APIConfig) Options() (cache.Options, error) {
	opts := cache.Options{
		Dir:      a.CacheDir,
		Name:     a.CacheName,
		Backend:  a.Backend,
		UseCache: a.UseCache,
		Timeout:  a.Timeout,
	}

	expire, disable, err := ParseExpiry(a.ExpireAfter)
	if err != nil {
		return cache.Options{}, err
	}
	opts.ExpireAfter = expire
	opts.DisableStore = disable

	return opts, nil
}

// Resolve produces the API's CacheConfig.
func (a APIConfig) Resolve() (cache.CacheConfig, error) {
	opts, err := a.Options()
	if err != nil {
		return cache.CacheConfig{}, err
	}
	return cache.Resolve(opts)
}

// ParseExpiry parses an expiry setting. It returns cache.NeverExpire for
// "never" and disable=true for a zero duration. The empty string yields
// zero, which cache.Resolve replaces with the default.
func ParseExpiry(s string) (expire time.Duration, disable bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return 0, false, nil
	case "never", "-1":
		return cache.NeverExpire, false, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		if secs, serr := time.ParseDuration(s + "s"); serr == nil {
			d, err = secs, nil
		}
	}
	if err != nil {
		return 0, false, &cache.ConfigError{Field: "expire_after", Value: s, Err: cache.ErrInvalidExpiry}
	}
	if d < 0 {
		return 0, false, &cache.ConfigError{Field: "expire_after", Value: s, Err: cache.ErrInvalidExpiry}
	}
	if d == 0 {
		return 0, true, nil
	}
	return d, false, nil
}
