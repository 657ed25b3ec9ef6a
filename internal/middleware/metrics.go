package middleware

import (
	"fmt"
	"time"

	"github.com/briefbase/sra-finder/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// Metrics returns a Gin handler that records two Prometheus series for every
// request passing through the router:
//
//   - http_requests_total{method, path, status}    — CounterVec
//   - http_request_duration_seconds{method, path}  — HistogramVec
//
// The path label is set from c.FullPath(), the matched route template, rather
// than the raw URL, so query strings and typos cannot inflate label
// cardinality. Requests that match no registered route use the literal
// "<no-route>".
//
// Register after gin.Recovery() and RequestID() so the status set by error
// handlers is captured correctly.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
