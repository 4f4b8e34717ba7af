package middleware

import (
	"fmt"

	response "sphere-game-data/backend/internal/infra/common"
	appLogger "sphere-game-data/backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
)

// Recovery 捕获 handler 中的 panic，记录完整上下文后以 500 信封返回。
func Recovery() gin.HandlerFunc {
	logger := appLogger.S().With("component", "recovery.middleware")
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Errorw("panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		response.Internal(c, fmt.Errorf("%v", recovered))
	})
}
