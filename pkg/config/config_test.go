package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/reqcache/pkg/cache"
	"github.com/Sternrassler/reqcache/pkg/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reqcache.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Log.Level != "info" {
		t.Errorf("expected info level, got %s", cfg.Log.Level)
	}
	if cfg.APIs == nil || len(cfg.APIs) != 0 {
		t.Errorf("expected empty api map, got %v", cfg.APIs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("REQCACHE_TEST_DIR", "/tmp/reqcache-test")

	path := writeConfig(t, `
log:
  level: debug
  pretty: true
client:
  user_agent: my-app/2.0
  timeout: 10s
  stale_if_error: false
apis:
  random_user:
    url: https://randomuser.me/api/
    cache_name: random_user_api
    cache_dir: ${REQCACHE_TEST_DIR}
    backend: sqlite
    expire_after: 15m
    use_cache: true
  uncached:
    url: https://api.example.com/live
    use_cache: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("log = %+v", cfg.Log)
	}

	api, err := cfg.API("random_user")
	if err != nil {
		t.Fatal(err)
	}
	if api.CacheDir != "/tmp/reqcache-test" {
		t.Errorf("env var not expanded: got %s", api.CacheDir)
	}

	cc, err := api.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cc.Location() != "/tmp/reqcache-test/random_user_api" {
		t.Errorf("Location() = %s", cc.Location())
	}
	if cc.ExpireAfter != 15*time.Minute {
		t.Errorf("expected 15m expiry, got %v", cc.ExpireAfter)
	}
	if !cc.UseCache {
		t.Error("expected use_cache true")
	}

	uncached, err := cfg.API("uncached")
	if err != nil {
		t.Fatal(err)
	}
	ucc, err := uncached.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if ucc.UseCache {
		t.Error("expected use_cache false")
	}
	if ucc.Location() != cache.DefaultDir+"/"+cache.DefaultName {
		t.Errorf("defaults not applied: %s", ucc.Location())
	}

	clientCfg := cfg.ClientConfig()
	if clientCfg.UserAgent != "my-app/2.0" || clientCfg.Timeout != 10*time.Second || clientCfg.StaleIfError {
		t.Errorf("client config = %+v", clientCfg)
	}

	logCfg := cfg.Logging()
	if logCfg.Level != logging.LevelDebug || !logCfg.Pretty {
		t.Errorf("logging config = %+v", logCfg)
	}

	if names := cfg.APINames(); len(names) != 2 || names[0] != "random_user" || names[1] != "uncached" {
		t.Errorf("APINames() = %v", names)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "redis backend",
			content: `
apis:
  a:
    backend: redis
`,
			wantErr: cache.ErrUnsupportedBackend,
		},
		{
			name: "bad expiry",
			content: `
apis:
  a:
    expire_after: soon
`,
			wantErr: cache.ErrInvalidExpiry,
		},
		{
			name: "negative expiry",
			content: `
apis:
  a:
    expire_after: -5m
`,
			wantErr: cache.ErrInvalidExpiry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(writeConfig(t, "log:\n  level: loud\n")); err == nil {
		t.Error("expected error for invalid log level")
	}
	if _, err := Load(writeConfig(t, "apis: [\n")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAPI_Unknown(t *testing.T) {
	_, err := Default().API("nope")
	if !errors.Is(err, ErrUnknownAPI) {
		t.Errorf("API() error = %v, want ErrUnknownAPI", err)
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in          string
		wantExpire  time.Duration
		wantDisable bool
		wantErr     bool
	}{
		{"", 0, false, false},
		{"15m", 15 * time.Minute, false, false},
		{"900", 900 * time.Second, false, false},
		{"never", cache.NeverExpire, false, false},
		{"-1", cache.NeverExpire, false, false},
		{"0", 0, true, false},
		{"0s", 0, true, false},
		{"-2h", 0, false, true},
		{"tomorrow", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expire, disable, err := ParseExpiry(tt.in)
			if tt.wantErr {
				if !errors.Is(err, cache.ErrInvalidExpiry) {
					t.Errorf("ParseExpiry(%q) error = %v, want ErrInvalidExpiry", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExpiry(%q) error = %v", tt.in, err)
			}
			if expire != tt.wantExpire || disable != tt.wantDisable {
				t.Errorf("ParseExpiry(%q) = %v, %v; want %v, %v", tt.in, expire, disable, tt.wantExpire, tt.wantDisable)
			}
		})
	}
}

func TestAPIConfig_ResolveDisableStore(t *testing.T) {
	cc, err := APIConfig{CacheName: "x", ExpireAfter: "0"}.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cc.StoresResponses() {
		t.Error("expire_after 0 should disable storing")
	}
}

func TestClientConfig_Defaults(t *testing.T) {
	cfg := Default().ClientConfig()
	if cfg.UserAgent == "" || cfg.Timeout != 30*time.Second || !cfg.StaleIfError {
		t.Errorf("ClientConfig() = %+v, want client defaults", cfg)
	}
}
