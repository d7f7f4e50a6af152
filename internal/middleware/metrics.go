package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"
)

const noRouteLabel = "<no-route>"

// MetricsMiddleware records http_requests_total{method, path, status} and
// http_request_duration_seconds{method, path} for each request.
//
// path is the matched route template (/api/v1/circuits/:id), never the raw URL, and
// unmatched requests share the "<no-route>" label. Routes listed in skip (the probe
// endpoints) are not counted so orchestrator polling does not drown the API series.
//
// Register it after gin.Recovery() so a recovered panic is recorded as a 500.
func MetricsMiddleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *gin.Context) {
		if skipped[c.FullPath()] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRouteLabel
		}
		method := c.Request.Method

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
