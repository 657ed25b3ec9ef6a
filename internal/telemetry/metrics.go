// Package telemetry provides application-level observability for the firm finder.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<SRA_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint returns the Prometheus text exposition
// format and is intended to be scraped every 15–60 seconds. It is NOT served
// by the Gin router, so it never passes through the API middleware chain.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Upstream SRA API attempt counters and latency, labelled by host and outcome
//   - Search operation counters and a result-count histogram
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template) rather than the raw request
// URL so user-supplied query strings cannot inflate label cardinality. Upstream
// metrics are labelled with the configured base host, of which there are only
// ever a handful.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Upstream metrics — one observation per host attempt, not per search, so a
// search that falls back from the primary to the secondary host records two
// samples. The outcome label distinguishes success from the three failure
// classes the client reports.
//
// Example PromQL queries:
//   - Primary host failure rate:  rate(upstream_requests_total{host="https://sra-prod-api.microsites.uk/datashare/api/v1",outcome!="success"}[15m])
//   - Alert on full outages:      increase(upstream_requests_total{outcome!="success"}[5m]) > 8
var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream SRA API attempts, by host and outcome (success, http_error, tls_error, network_error).",
		},
		[]string{"host", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Histogram of upstream SRA API attempt latencies, by host.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)
)

// Search metrics.
//
// SearchesTotal counts /search invocations by outcome (ok, invalid_postcode,
// upstream_error). SearchResultsReturned records how many firms each
// successful search returned; a persistent shift towards zero can indicate an
// upstream data problem even while every request succeeds.
var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total number of postcode searches, by outcome (ok, invalid_postcode, upstream_error).",
		},
		[]string{"outcome"},
	)

	SearchResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results_returned",
			Help:    "Number of matching firms returned per successful search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
	)
)
