package middleware

import (
	"context"

	domain "sphere-game-data/backend/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// Authenticator 抽象出鉴权中间件的公共行为，便于在测试中替换实现。
type Authenticator interface {
	Handle() gin.HandlerFunc
}

// IdentityResolver 把请求携带的令牌解析为调用方身份，auth.Service 实现了该接口。
type IdentityResolver interface {
	Authenticate(ctx context.Context, key string) (domain.Identity, error)
}

const identityKey = "identity"

// SetIdentity 把身份写入 gin.Context，供后续中间件与 handler 读取。
func SetIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom 读取当前请求的身份；未经过鉴权中间件时视为匿名。
func IdentityFrom(c *gin.Context) domain.Identity {
	if value, ok := c.Get(identityKey); ok {
		if identity, ok := value.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Anonymous()
}
