package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/reqcache/pkg/cache"
	"github.com/Sternrassler/reqcache/pkg/codec"
)

// statsReport is the output of "cache stats".
type statsReport struct {
	Location    string `json:"location" yaml:"location"`
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	Backend     string `json:"backend" yaml:"backend"`
	ExpireAfter string `json:"expire_after" yaml:"expire_after"`
	cache.Stats `yaml:",inline"`
}

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(e)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := m.Stats(cmd.Context())
			if err != nil {
				return err
			}

			report := statsReport{
				Location:    e.cache.Location(),
				Backend:     string(e.cache.Backend),
				ExpireAfter: formatDuration(e.cache.ExpireAfter),
				Stats:       stats,
			}
			if sb, ok := m.Backend().(*cache.SQLiteBackend); ok {
				report.File = sb.Path()
			}

			out, err := codec.EncodeValue(report, e.format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(e)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := m.Clear(cmd.Context(), expiredOnly)
			if err != nil {
				return err
			}
			e.logger.Info().
				Str("cache", e.cache.Location()).
				Int64("removed", n).
				Bool("expired_only", expiredOnly).
				Msg("Cache cleared")

			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries.\n", n)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// openManager opens the configured backend for maintenance.
func openManager(e *env) (*cache.Manager, func(), error) {
	backend, err := cache.OpenBackend(e.cache)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := backend.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close cache backend")
		}
	}
	return cache.NewManager(backend), closeFn, nil
}
