// Package metrics provides the centralized Prometheus metrics registry
// for the GROBID client. All metrics are defined in their respective
// packages (client, batch, cache) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - grobid_requests_total{service, status} (Counter): Total submissions by service and HTTP status
//   - grobid_request_duration_seconds{service} (Histogram): Submission duration by service
//
// Retry Metrics (pkg/client):
//   - grobid_retries_total{service} (Counter): Resubmissions after a 503 overload response
//   - grobid_retry_wait_seconds (Histogram): Wait duration before resubmission
//   - grobid_retry_exhausted_total{service} (Counter): Files whose bounded retry policy gave up
//
// Batch Metrics (pkg/batch):
//   - grobid_batches_total (Counter): Batches drained
//   - grobid_files_total{outcome} (Counter): Files reaching a terminal outcome (written, skipped, failed)
//   - grobid_batch_duration_seconds (Histogram): Wall time to drain one batch
//
// Cache Metrics (pkg/cache):
//   - grobid_cache_hits_total (Counter): Result cache hits
//   - grobid_cache_misses_total (Counter): Result cache misses
//   - grobid_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Overload pressure
//   rate(grobid_retries_total[5m])
//
//   # Failure share
//   sum(rate(grobid_files_total{outcome="failed"}[5m])) /
//   sum(rate(grobid_files_total[5m]))
//
//   # P95 submission latency
//   histogram_quantile(0.95, rate(grobid_request_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   rate(grobid_cache_hits_total[5m]) /
//   (rate(grobid_cache_hits_total[5m]) + rate(grobid_cache_misses_total[5m]))
