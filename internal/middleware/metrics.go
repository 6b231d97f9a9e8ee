package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmaulana/school-notify-api/internal/service"
)

// Metrics records duration and status for every handled request. The
// route template is used as the path label so ids do not explode the
// cardinality; unmatched routes fall back to the raw path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
