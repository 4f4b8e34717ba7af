package middleware

import (
	"time"

	"sphere-game-data/backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录每个请求的耗时，route 取路由模板以控制标签基数。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
