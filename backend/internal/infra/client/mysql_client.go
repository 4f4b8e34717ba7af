package client

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"sphere-game-data/backend/internal/config"

	"github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	defaultMySQLHost     = "127.0.0.1"
	defaultMySQLPort     = 3306
	defaultMySQLDatabase = "sphere"
	defaultMySQLCharset  = "utf8mb4"
)

// MySQLConfig 描述数据库连接所需的配置项，全部来自环境变量。
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Charset  string
}

// LoadMySQLConfigFromEnv 读取 MYSQL_* 变量并填充默认值。
func LoadMySQLConfigFromEnv() MySQLConfig {
	config.LoadEnvFiles()

	return MySQLConfig{
		Host:     config.String("MYSQL_HOST", defaultMySQLHost),
		Port:     config.Int("MYSQL_PORT", defaultMySQLPort),
		Username: config.String("MYSQL_USER", ""),
		Password: config.String("MYSQL_PASSWORD", ""),
		Database: config.String("MYSQL_DATABASE", defaultMySQLDatabase),
		Charset:  config.String("MYSQL_CHARSET", defaultMySQLCharset),
	}
}

// validateMySQLConfig 校验配置字段是否完整。
func validateMySQLConfig(cfg MySQLConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if cfg.Username == "" {
		return fmt.Errorf("mysql username is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	return nil
}

// BuildMySQLDSN 在通过校验后借助驱动自带的 Config 生成 DSN，时间统一按 UTC 解析。
func BuildMySQLDSN(cfg MySQLConfig) (string, error) {
	if err := validateMySQLConfig(cfg); err != nil {
		return "", err
	}

	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	charset := cfg.Charset
	if charset == "" {
		charset = defaultMySQLCharset
	}

	driverCfg := mysql.NewConfig()
	driverCfg.User = cfg.Username
	driverCfg.Passwd = cfg.Password
	driverCfg.Net = "tcp"
	driverCfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	driverCfg.DBName = cfg.Database
	driverCfg.ParseTime = true
	driverCfg.Loc = time.UTC
	driverCfg.Params = map[string]string{"charset": charset}

	return driverCfg.FormatDSN(), nil
}

// NewGORMMySQL 创建 GORM 连接并完成连接池设置与连通性检查。
func NewGORMMySQL(cfg MySQLConfig) (*gorm.DB, error) {
	dsn, err := BuildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(mysqlDriver.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open gorm mysql: %w", err)
	}
	if err := tunePool(gormDB); err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	return gormDB, nil
}
