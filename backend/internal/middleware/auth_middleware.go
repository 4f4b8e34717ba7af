package middleware

import (
	"errors"
	"net/http"
	"strings"

	domain "sphere-game-data/backend/internal/domain/user"
	response "sphere-game-data/backend/internal/infra/common"
	appLogger "sphere-game-data/backend/internal/infra/logger"
	authsvc "sphere-game-data/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	detailInvalidToken  = "Invalid token."
	detailNotProvided   = "Authentication credentials were not provided."
	detailNoPermission  = "You do not have permission to perform this action."
	authorizationHeader = "Authorization"
	tokenScheme         = "token"
	bearerScheme        = "bearer"
)

// AuthMiddleware 解析 Authorization 头中的访问令牌并把身份写入上下文。
// 未携带凭据的请求以匿名身份继续，是否放行交给后续的权限中间件决定。
type AuthMiddleware struct {
	resolver IdentityResolver
	logger   *zap.SugaredLogger
}

// NewAuthMiddleware 使用给定的身份解析器创建中间件。
func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   appLogger.S().With("component", "auth.middleware"),
	}
}

// Handle 返回 gin 中间件：
//   - 没有 Authorization 头或使用其他 scheme：匿名；
//   - Token/Bearer 后没有令牌，或令牌无效、已吊销：401；
//   - 解析成功：写入身份。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, presented := extractToken(c.GetHeader(authorizationHeader))
		if !presented {
			SetIdentity(c, domain.Anonymous())
			c.Next()
			return
		}
		if key == "" {
			response.AbortDetail(c, http.StatusUnauthorized, detailInvalidToken)
			return
		}

		identity, err := m.resolver.Authenticate(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, authsvc.ErrInvalidToken) {
				response.AbortDetail(c, http.StatusUnauthorized, detailInvalidToken)
				return
			}
			m.logger.Errorw("authenticate request failed", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			response.Internal(c, err)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// RequireAuthenticated 拒绝匿名调用方。
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).Authenticated {
			response.AbortDetail(c, http.StatusUnauthorized, detailNotProvided)
			return
		}
		c.Next()
	}
}

// extractToken 按 "<scheme> <key>" 解析头部，scheme 不区分大小写。
// presented 为 false 表示请求没有使用本服务认可的 scheme。
func extractToken(header string) (key string, presented bool) {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return "", false
	}
	scheme := strings.ToLower(fields[0])
	if scheme != tokenScheme && scheme != bearerScheme {
		return "", false
	}
	if len(fields) != 2 {
		return "", true
	}
	return fields[1], true
}
