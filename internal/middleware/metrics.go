package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/metrics"
)

// CollectRequests records a counter per request method and status code.
func CollectRequests(collector metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		collector.RecordHTTPRequest(c.Request.Method, c.Writer.Status())
	}
}
