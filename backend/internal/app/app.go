package app

import (
	"context"
	"errors"
	"fmt"

	"sphere-game-data/backend/internal/config"
	gamedata "sphere-game-data/backend/internal/domain/gamedata"
	"sphere-game-data/backend/internal/domain/user"
	"sphere-game-data/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Resources 汇总进程级共享的外部资源。
type Resources struct {
	Config config.RuntimeFlags
	DB     *gorm.DB
	Redis  *redis.Client
}

// InitResources 按运行模式建立数据库连接、迁移表结构；TOKEN_STORE=redis 时同时连接 Redis。
func InitResources(ctx context.Context) (*Resources, error) {
	flags := config.LoadRuntimeFlags()

	db, err := openDatabase(flags)
	if err != nil {
		return nil, err
	}
	resources := &Resources{Config: flags, DB: db}

	if err := AutoMigrate(db); err != nil {
		_ = resources.Close()
		return nil, err
	}

	if flags.TokenStore == config.TokenStoreRedis {
		opts, err := client.NewDefaultRedisOptions()
		if err != nil {
			_ = resources.Close()
			return nil, fmt.Errorf("redis options: %w", err)
		}
		rdb, err := client.NewRedisClient(ctx, opts)
		if err != nil {
			_ = resources.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		resources.Redis = rdb
	}

	return resources, nil
}

func openDatabase(flags config.RuntimeFlags) (*gorm.DB, error) {
	if flags.IsLocal() {
		db, err := client.NewGORMSQLite(flags.LocalDBPath)
		if err != nil {
			return nil, fmt.Errorf("open local database: %w", err)
		}
		return db, nil
	}

	switch flags.DBDriver {
	case config.DriverPostgres:
		if flags.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		db, err := client.NewGORMPostgres(flags.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	default:
		db, err := client.NewGORMMySQL(client.LoadMySQLConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return db, nil
	}
}

// AutoMigrate 创建或更新服务所需的全部表。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&gamedata.Record{}, &user.User{}, &user.AuthToken{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// DBConn 返回 gorm 连接。
func (r *Resources) DBConn() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.DB
}
