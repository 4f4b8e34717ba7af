package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"sphere-game-data/backend/internal/handler"
	response "sphere-game-data/backend/internal/infra/common"
	"sphere-game-data/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AuthHandler     *handler.AuthHandler
	GameDataHandler *handler.GameDataHandler
	AuthMW          middleware.Authenticator
	// AllowedOrigins 为额外放行的跨域来源，本地回环地址始终放行。
	AllowedOrigins []string
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// gin 中间件配置
	r.Use(middleware.Recovery())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
		SkipPaths: []string{"/metrics"},
	}))
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 鉴权对所有业务路由生效：无凭据视为匿名，带了无效令牌直接 401。
	api := r.Group("/")
	if opts.AuthMW != nil {
		api.Use(opts.AuthMW.Handle())
	}

	if opts.AuthHandler != nil {
		api.POST("/login/", opts.AuthHandler.Login)
		api.POST("/logout/", middleware.RequireAuthenticated(), opts.AuthHandler.Logout)
	}

	if opts.GameDataHandler != nil {
		// 权限表在进入 handler 之前统一判定，拒绝时不会触及存储。
		games := api.Group("/game-data", middleware.RequirePolicy())
		games.POST("/", opts.GameDataHandler.Create)
		games.GET("/", opts.GameDataHandler.List)
		games.GET("/:id/", opts.GameDataHandler.Get)
		games.PUT("/:id/", opts.GameDataHandler.Update)
		games.DELETE("/:id/", opts.GameDataHandler.Delete)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Detail(c, http.StatusNotFound, "Not found.")
	})
	r.NoMethod(func(c *gin.Context) {
		response.Detail(c, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", c.Request.Method))
	})

	return r
}

func corsConfig(allowed []string) cors.Config {
	extra := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		extra[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			if _, ok := extra[origin]; ok {
				return true
			}
			if strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			if strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			return false
		},
	}
}
