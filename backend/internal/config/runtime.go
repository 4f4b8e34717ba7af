package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ModeLocal 使用本地 SQLite 文件，适合开发与单机部署。
	ModeLocal = "local"
	// ModeOnline 连接外部数据库（MySQL 或 PostgreSQL）。
	ModeOnline = "online"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	// TokenStoreDatabase 把令牌保存在主库的 auth_tokens 表。
	TokenStoreDatabase = "database"
	// TokenStoreRedis 把令牌保存在 Redis。
	TokenStoreRedis = "redis"

	defaultPort           = "8000"
	defaultLocalDBRelPath = "data/sphere-game-data.db"
)

// RuntimeFlags 汇总服务启动所需的运行期配置。
type RuntimeFlags struct {
	Mode           string
	Port           string
	DBDriver       string
	DatabaseURL    string
	LocalDBPath    string
	TokenStore     string
	AllowedOrigins []string
}

// IsLocal 判断当前是否为本地 SQLite 模式。
func (f RuntimeFlags) IsLocal() bool {
	return f.Mode == ModeLocal
}

// LoadRuntimeFlags 读取环境变量，推导运行模式、数据库驱动与令牌存储方式。
func LoadRuntimeFlags() RuntimeFlags {
	LoadEnvFiles()

	flags := RuntimeFlags{
		Mode:           strings.ToLower(String("APP_MODE", ModeLocal)),
		Port:           String("SERVER_PORT", defaultPort),
		DBDriver:       strings.ToLower(String("DB_DRIVER", DriverMySQL)),
		DatabaseURL:    String("DATABASE_URL", ""),
		LocalDBPath:    normalisePath(String("LOCAL_SQLITE_PATH", defaultLocalDBRelPath)),
		TokenStore:     strings.ToLower(String("TOKEN_STORE", TokenStoreDatabase)),
		AllowedOrigins: List("CORS_ALLOWED_ORIGINS"),
	}

	if flags.Mode != ModeOnline {
		flags.Mode = ModeLocal
	}
	if flags.DBDriver != DriverPostgres {
		flags.DBDriver = DriverMySQL
	}
	if flags.TokenStore != TokenStoreRedis {
		flags.TokenStore = TokenStoreDatabase
	}
	return flags
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
