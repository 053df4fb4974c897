package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-curriculum-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request count and latency labelled by route pattern. Requests that
// match no route share one label so probes for random paths cannot grow the series.
// Scrapes of the metrics endpoint itself are not recorded.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
