package bootstrap

import (
	"context"
	"net/http"

	"sphere-game-data/backend/internal/app"
	"sphere-game-data/backend/internal/handler"
	"sphere-game-data/backend/internal/infra/token"
	"sphere-game-data/backend/internal/middleware"
	"sphere-game-data/backend/internal/repository"
	"sphere-game-data/backend/internal/server"
	authsvc "sphere-game-data/backend/internal/service/auth"
	gamedatasvc "sphere-game-data/backend/internal/service/gamedata"

	"go.uber.org/zap"
)

type Application struct {
	Resources   *app.Resources
	AuthSvc     *authsvc.Service
	GameDataSvc *gamedatasvc.Service
	Router      http.Handler
}

// BuildApplication 组装 repository、service、handler 与路由。
// Redis 可用时令牌存入 Redis，否则落在主库的 auth_tokens 表。
func BuildApplication(_ context.Context, logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	db := resources.DBConn()
	userRepo := repository.NewUserRepository(db)

	var tokenStore authsvc.TokenStore
	if resources.Redis != nil {
		tokenStore = token.NewRedisTokenStore(resources.Redis, "")
		logger.Infow("using redis token store")
	} else {
		tokenStore = repository.NewTokenRepository(db)
		logger.Infow("using database token store")
	}

	authService := authsvc.NewService(userRepo, tokenStore)
	authHandler := handler.NewAuthHandler(authService)

	gameDataService := gamedatasvc.NewService(repository.NewGameDataRepository(db))
	gameDataHandler := handler.NewGameDataHandler(gameDataService)

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:     authHandler,
		GameDataHandler: gameDataHandler,
		AuthMW:          middleware.NewAuthMiddleware(authService),
		AllowedOrigins:  resources.Config.AllowedOrigins,
	})

	return &Application{
		Resources:   resources,
		AuthSvc:     authService,
		GameDataSvc: gameDataService,
		Router:      router,
	}, nil
}
