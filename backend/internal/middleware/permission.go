package middleware

import (
	"net/http"
	"strings"

	domain "sphere-game-data/backend/internal/domain/user"
	response "sphere-game-data/backend/internal/infra/common"

	"github.com/gin-gonic/gin"
)

// Decision 是权限判定的结果。
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// audience 描述某个方法允许的调用方范围。
type audience int

const (
	everyone audience = iota
	staffOnly
)

// gameDataPolicy 是遥测接口的方法权限表：任何人都可以提交，读取与维护仅限运营人员。
var gameDataPolicy = map[string]audience{
	http.MethodPost:    everyone,
	http.MethodGet:     staffOnly,
	http.MethodHead:    staffOnly,
	http.MethodOptions: staffOnly,
	http.MethodPut:     staffOnly,
	http.MethodPatch:   staffOnly,
	http.MethodDelete:  staffOnly,
}

// Decide 根据请求方法与调用方身份查表；表中没有的方法一律拒绝。
func Decide(method string, identity domain.Identity) Decision {
	rule, ok := gameDataPolicy[strings.ToUpper(method)]
	if !ok {
		return Deny
	}
	switch rule {
	case everyone:
		return Allow
	case staffOnly:
		if identity.Authenticated && identity.IsStaff {
			return Allow
		}
	}
	return Deny
}

// RequirePolicy 在 handler 之前执行一次权限判定，拒绝时返回 403，与资源是否存在无关。
func RequirePolicy() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Decide(c.Request.Method, IdentityFrom(c)) == Deny {
			response.AbortDetail(c, http.StatusForbidden, detailNoPermission)
			return
		}
		c.Next()
	}
}
