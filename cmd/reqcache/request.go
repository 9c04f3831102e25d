package main

import (
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/reqcache/pkg/client"
	"github.com/Sternrassler/reqcache/pkg/codec"
	"github.com/Sternrassler/reqcache/pkg/metrics"
)

func newGetCmd(opts *globalOptions) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "get [url]",
		Short: "GET a URL through the cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			target, err := e.targetURL(args)
			if err != nil {
				return err
			}
			c, err := e.newClient()
			if err != nil {
				return err
			}

			resp, err := c.Get(cmd.Context(), e.cache, target)
			if err != nil {
				return err
			}
			return writeResponse(cmd, e, resp, showMetrics)
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print reqcache metrics to stderr afterwards")
	return cmd
}

func newPostCmd(opts *globalOptions) *cobra.Command {
	var (
		data        string
		form        []string
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "post [url]",
		Short: "POST to a URL through the cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" && len(form) > 0 {
				return fmt.Errorf("--data and --form are mutually exclusive")
			}

			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			target, err := e.targetURL(args)
			if err != nil {
				return err
			}
			body, err := postBody(data, form)
			if err != nil {
				return err
			}
			c, err := e.newClient()
			if err != nil {
				return err
			}

			resp, err := c.Post(cmd.Context(), e.cache, target, body)
			if err != nil {
				return err
			}
			return writeResponse(cmd, e, resp, showMetrics)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body; valid JSON is sent as application/json")
	cmd.Flags().StringArrayVarP(&form, "form", "F", nil, "form field key=value (repeatable)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print reqcache metrics to stderr afterwards")
	return cmd
}

// postBody turns --data or --form into a client.Post body.
func postBody(data string, form []string) (any, error) {
	if len(form) > 0 {
		values := url.Values{}
		for _, field := range form {
			k, v, ok := strings.Cut(field, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid form field %q (want key=value)", field)
			}
			values.Add(k, v)
		}
		return values, nil
	}
	if data == "" {
		return nil, nil
	}
	if jsoniter.ConfigCompatibleWithStandardLibrary.Valid([]byte(data)) {
		return jsoniter.RawMessage(data), nil
	}
	return data, nil
}

func writeResponse(cmd *cobra.Command, e *env, resp *client.Response, showMetrics bool) error {
	out, err := codec.Encode(resp, e.format)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}
	if showMetrics {
		return metrics.WriteText(cmd.ErrOrStderr())
	}
	return nil
}
