package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sphere-game-data/backend/internal/app"
	"sphere-game-data/backend/internal/bootstrap"
	"sphere-game-data/backend/internal/config"
	gamedata "sphere-game-data/backend/internal/domain/gamedata"
	"sphere-game-data/backend/internal/domain/user"
	"sphere-game-data/backend/internal/infra/logger"
	authsvc "sphere-game-data/backend/internal/service/auth"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	username = flag.String("username", "", "管理员用户名，默认读取 SEED_ADMIN_USERNAME，缺省为 admin")
	password = flag.String("password", "", "管理员密码，默认读取 SEED_ADMIN_PASSWORD")
)

// main 准备一个运营管理员账号并输出其访问令牌；账号已存在时只提示并输出现有令牌。
func main() {
	flag.Parse()

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar()

	name, secret := resolveCredentials(*username, *password)
	if secret == "" {
		sugar.Fatalw("admin password is required", "hint", "pass -password or set SEED_ADMIN_PASSWORD")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.InitResources(ctx)
	if err != nil {
		sugar.Fatalw("initialise resources failed", "error", err)
	}
	defer func() {
		if closeErr := resources.Close(); closeErr != nil {
			sugar.Warnw("close resources failed", "error", closeErr)
		}
	}()

	application, err := bootstrap.BuildApplication(ctx, sugar, resources)
	if err != nil {
		sugar.Fatalw("build application failed", "error", err)
	}

	if err := seedAdmin(ctx, application.AuthSvc, name, secret, os.Stdout, sugar); err != nil {
		sugar.Fatalw("seed admin failed", "error", err)
	}

	if err := reportSeedSummary(ctx, resources.DBConn(), sugar); err != nil {
		sugar.Warnw("report seed summary failed", "error", err)
	}
}

// resolveCredentials 命令行参数优先，其次读取环境变量。
func resolveCredentials(flagUsername, flagPassword string) (string, string) {
	config.LoadEnvFiles()

	name := strings.TrimSpace(flagUsername)
	if name == "" {
		name = config.String("SEED_ADMIN_USERNAME", "admin")
	}
	secret := flagPassword
	if secret == "" {
		secret = config.String("SEED_ADMIN_PASSWORD", "")
	}
	return name, secret
}

func seedAdmin(ctx context.Context, svc *authsvc.Service, name, secret string, out io.Writer, sugar *zap.SugaredLogger) error {
	created, admin, key, err := svc.EnsureAdmin(ctx, name, secret)
	if err != nil {
		return err
	}
	if created {
		sugar.Infow("admin user created", "user_id", admin.ID, "username", admin.Username)
	} else {
		sugar.Warnw("admin user already exists, password left unchanged", "user_id", admin.ID, "username", admin.Username)
	}
	_, err = fmt.Fprintf(out, "Token for %s: %s\n", admin.Username, key)
	return err
}

// reportSeedSummary 统计关键表的记录数，便于调用者确认结果。
func reportSeedSummary(ctx context.Context, db *gorm.DB, sugar *zap.SugaredLogger) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	var userCount int64
	if err := db.WithContext(ctx).Model(&user.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	var recordCount int64
	if err := db.WithContext(ctx).Model(&gamedata.Record{}).Count(&recordCount).Error; err != nil {
		return fmt.Errorf("count game data: %w", err)
	}

	sugar.Infow(
		"seed summary",
		"users", userCount,
		"game_data_records", recordCount,
	)
	return nil
}
