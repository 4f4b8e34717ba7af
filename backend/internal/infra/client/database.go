package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	poolMaxLifetime = 60 * time.Minute
	poolMaxIdle     = 10
	poolMaxOpen     = 25
)

// newGormConfig 返回各驱动共用的 GORM 配置，关闭默认的 SQL 日志，时间统一使用 UTC。
func newGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// tunePool 设置连接池参数并执行一次 Ping。
func tunePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	sqlDB.SetConnMaxLifetime(poolMaxLifetime)
	sqlDB.SetMaxIdleConns(poolMaxIdle)
	sqlDB.SetMaxOpenConns(poolMaxOpen)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// NewGORMPostgres 通过 DATABASE_URL 风格的 DSN 连接 PostgreSQL。
func NewGORMPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	if err := tunePool(gormDB); err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	return gormDB, nil
}

// NewGORMSQLite 打开本地 SQLite 文件，目录不存在时自动创建。
// SQLite 只允许单写者，连接数固定为 1。
func NewGORMSQLite(path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return gormDB, nil
}
