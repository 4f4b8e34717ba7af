package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// envFiles 按优先级排列，靠前的文件覆盖靠后的同名变量。
var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles 只加载一次 .env 与 .env.local，CONFIG_SKIP_ENV_LOAD=1 时跳过。
func LoadEnvFiles() {
	envOnceLock.Lock()
	skip := skipEnvLoad
	envOnceLock.Unlock()
	if skip || os.Getenv("CONFIG_SKIP_ENV_LOAD") == "1" {
		return
	}

	envOnce.Do(func() {
		for _, name := range envFiles {
			path, ok := findEnvFile(name)
			if !ok {
				continue
			}
			if err := godotenv.Overload(path); err != nil {
				log.Printf("[config] skip environment file %s: %v", path, err)
				continue
			}
			log.Printf("[config] loaded environment file: %s", path)
		}
	})
}

// SetEnvFileLoadingForTest 控制是否自动读取 env 文件，仅供测试使用。
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

// findEnvFile 从当前目录向上查找，命中第一个同名文件即返回。
func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for dir := cwd; ; {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// String 读取去掉首尾空白的环境变量，缺失时返回 fallback。
func String(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Int 读取整数环境变量，解析失败时返回 fallback。
func Int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] invalid integer for %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return parsed
}

// List 读取逗号分隔的列表，忽略空项。
func List(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
