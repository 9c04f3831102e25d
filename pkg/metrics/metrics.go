// Package metrics provides the Prometheus registry used by reqcache.
// All metrics are defined in their respective packages (client, cache)
// to maintain modularity and avoid circular dependencies.
package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Prefix is shared by every metric reqcache registers.
const Prefix = "reqcache_"

// Gatherer reads the default Prometheus registry, where promauto
// registers every reqcache metric.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteText writes every reqcache metric family in the Prometheus text
// exposition format. Families from other libraries are skipped.
func WriteText(w io.Writer) error {
	return writeText(w, Gatherer)
}

func writeText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - reqcache_cache_hits_total{backend} (Counter): Fresh cache hits by backend kind
//   - reqcache_cache_misses_total (Counter): Cache misses
//   - reqcache_cache_stale_total (Counter): Expired entries found (revalidated or served stale)
//   - reqcache_cache_size_bytes{backend} (Gauge): Bytes written to the cache by this process
//   - reqcache_304_responses_total (Counter): 304 Not Modified responses
//   - reqcache_conditional_requests_total (Counter): Conditional requests sent
//   - reqcache_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - reqcache_requests_total{method, status} (Counter): Completed calls by method and
//     HTTP status, or status="cache" when served from the cache
//   - reqcache_request_duration_seconds{method} (Histogram): Call duration, cache hits included
//   - reqcache_errors_total{class} (Counter): Failed calls by class
//     (network, timeout, decode, encode, cache)
//   - reqcache_open_sessions (Gauge): Cache sessions currently open; zero between calls
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(reqcache_cache_hits_total[5m])) /
//   (sum(rate(reqcache_cache_hits_total[5m])) + sum(rate(reqcache_cache_misses_total[5m])))
//
//   # Leaked Sessions
//   reqcache_open_sessions > 0
//
//   # Request Error Rate
//   rate(reqcache_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(reqcache_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(reqcache_304_responses_total[5m]) / rate(reqcache_requests_total[5m])
