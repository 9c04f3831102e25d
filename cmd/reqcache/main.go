// Command reqcache fetches JSON APIs through a durable response cache and
// prints the normalized response.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/reqcache/pkg/cache"
	"github.com/Sternrassler/reqcache/pkg/client"
	"github.com/Sternrassler/reqcache/pkg/codec"
	"github.com/Sternrassler/reqcache/pkg/config"
	"github.com/Sternrassler/reqcache/pkg/logging"
)

var version = client.Version

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	api         string
	cacheDir    string
	cacheName   string
	backend     string
	expireAfter string
	noCache     bool
	format      string
	logLevel    string
	pretty      bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "reqcache",
		Short:         "Cache-backed HTTP client for JSON APIs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	flags.StringVar(&opts.api, "api", "", "named api from the config file")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (default \".cache\")")
	flags.StringVar(&opts.cacheName, "cache-name", "", "cache name (default \"default_cache\")")
	flags.StringVar(&opts.backend, "backend", "", "cache backend (default \"sqlite\")")
	flags.StringVar(&opts.expireAfter, "expire-after", "", "entry lifetime: a duration, \"never\" or \"0\" to disable storing")
	flags.BoolVar(&opts.noCache, "no-cache", false, "bypass the cache for this call")
	flags.StringVar(&opts.format, "format", "json", "output format (json, yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.BoolVar(&opts.pretty, "pretty", false, "human-readable logs")

	root.AddCommand(
		newGetCmd(opts),
		newPostCmd(opts),
		newCacheCmd(opts),
	)

	return root
}

// env is what a command needs after flags and config file are merged.
type env struct {
	cfg    *config.Config
	api    config.APIConfig
	cache  cache.CacheConfig
	format codec.Format
	logger zerolog.Logger
}

// setup loads the config file, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, opts *globalOptions) (*env, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	if cmd.Flags().Changed("log-level") {
		level, err := logging.ParseLevel(opts.logLevel)
		if err != nil {
			return nil, err
		}
		logCfg.Level = level
	}
	if cmd.Flags().Changed("pretty") {
		logCfg.Pretty = opts.pretty
	}
	logging.Setup(logCfg)

	format, err := codec.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}

	var api config.APIConfig
	if opts.api != "" {
		if api, err = cfg.API(opts.api); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("cache-dir") {
		api.CacheDir = opts.cacheDir
	}
	if cmd.Flags().Changed("cache-name") {
		api.CacheName = opts.cacheName
	}
	if cmd.Flags().Changed("backend") {
		api.Backend = opts.backend
	}
	if cmd.Flags().Changed("expire-after") {
		api.ExpireAfter = opts.expireAfter
	}
	if opts.noCache {
		api.UseCache = cache.Bool(false)
	}

	cacheCfg, err := api.Resolve()
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		api:    api,
		cache:  cacheCfg,
		format: format,
		logger: logging.NewLogger("reqcache-cli"),
	}, nil
}

// targetURL picks the URL argument, falling back to the named api's URL.
func (e *env) targetURL(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if e.api.URL == "" {
		return "", fmt.Errorf("no url given and no --api with a url configured")
	}
	return e.api.URL, nil
}

func (e *env) newClient() (*client.Client, error) {
	return client.New(e.cfg.ClientConfig())
}

func formatDuration(d time.Duration) string {
	if d == cache.NeverExpire {
		return "never"
	}
	if d == 0 {
		return "disabled"
	}
	return d.String()
}
