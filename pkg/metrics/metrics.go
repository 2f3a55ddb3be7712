// Package metrics provides the Prometheus registry and textfile export for
// the assessment fetcher. All metrics are defined in their respective
// packages (client, pagination, cache, persist) and registered with Registry
// through promauto.With. This package imports none of them.
//
// This package documents the available metrics and exports them after a
// batch run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Registry is the registerer every package's collectors are created with.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics written by WriteTextfile.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all registered metrics to path in the text
// exposition format, for node-exporter's textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, Gatherer)
}

// WriteTextfileFrom writes the metrics of g to path.
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("metrics file path is required")
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	log.Debug().Str("component", "metrics").Str("path", path).Msg("Metrics written")
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - assessments_requests_total{endpoint, status} (Counter): Requests by resource path and HTTP status ("cache", "network_error" for non-HTTP outcomes)
//   - assessments_request_duration_seconds{endpoint} (Histogram): Request duration by resource path
//   - assessments_errors_total{class} (Counter): Errors by class (client, rate_limit, server, network)
//
// Fetch Metrics (pkg/pagination):
//   - assessments_pages_fetched_total (Counter): Successful page requests
//   - assessments_records_fetched_total (Counter): Records received
//   - assessments_fetch_duration_seconds{mode} (Histogram): Complete run duration ("all", "limited")
//
// Cache Metrics (pkg/cache):
//   - assessments_cache_hits_total{state} (Counter): Cache hits ("fresh", "stale")
//   - assessments_cache_misses_total (Counter): Cache misses
//   - assessments_cache_size_bytes (Gauge): Page bytes written to the cache
//   - assessments_304_responses_total (Counter): Successful revalidations
//   - assessments_cache_errors_total{operation} (Counter): Cache operation errors
//
// Persistence Metrics (pkg/persist):
//   - assessments_records_saved_total{format} (Counter): Records written ("csv", "sqlite")
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(assessments_cache_hits_total[5m])) /
//   (sum(rate(assessments_cache_hits_total[5m])) + sum(rate(assessments_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(assessments_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(assessments_request_duration_seconds_bucket[5m]))
//
//   # Records per fetch run
//   increase(assessments_records_fetched_total[1d])
