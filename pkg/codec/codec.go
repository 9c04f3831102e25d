// Package codec encodes normalized responses as structured data.
//
// Two formats are supported: JSON (json-iterator, standard library
// compatible) and YAML (yaml.v3). Any other format is rejected with
// ErrUnsupportedFormat.
package codec

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/reqcache/pkg/client"
)

// Format names a structured-data encoding.
type Format string

const (
	// FormatJSON encodes with json-iterator.
	FormatJSON Format = "json"

	// FormatYAML encodes with yaml.v3.
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for formats outside the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported format")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat maps a format name to a Format. Names are case-insensitive
// and "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Encode serializes resp in format f.
func Encode(resp *client.Response, f Format) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	return EncodeValue(resp, f)
}

// EncodeValue serializes any value in format f. JSON output is indented.
func EncodeValue(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Decode parses data produced by Encode.
func Decode(data []byte, f Format) (*client.Response, error) {
	var resp client.Response

	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		// YAML yields ints and its own map shapes; bring content back to
		// the JSON value model the client produces.
		content, err := normalizeContent(resp.Content)
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		resp.Content = content
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}

	if resp.Headers == nil {
		resp.Headers = client.Headers{}
	}
	return &resp, nil
}

func normalizeContent(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
