package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sphere-game-data/backend/internal/config"
)

func TestBuildWritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sphere.log")

	logger, err := Build(Options{Level: "debug", Encoding: "json", Console: "off", FilePath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Sugar().Infow("record stored", "id", 7)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	for _, fragment := range []string{`"msg":"record stored"`, `"id":7`, `"service":"sphere-game-data"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("log line %q missing %s", content, fragment)
		}
	}
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	if _, err := Build(Options{Level: "loud", Console: "off"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestBuildWithoutOutputsIsNop(t *testing.T) {
	logger, err := Build(Options{Console: "off"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Info("dropped")
}

func TestLoadOptionsFromEnv(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_ENCODING", "")
	t.Setenv("LOG_CONSOLE", "stderr")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_SIZE", "-3")
	t.Setenv("LOG_MAX_BACKUPS", "9")
	t.Setenv("LOG_MAX_AGE", "")
	t.Setenv("LOG_COMPRESS", "false")

	opts := loadOptionsFromEnv()
	if opts.Level != "warn" || opts.Encoding != "json" || opts.Console != "stderr" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.FilePath != "" {
		t.Fatalf("file output must be opt-in, got %s", opts.FilePath)
	}
	if opts.MaxSize != 20 || opts.MaxBackups != 9 || opts.MaxAge != 15 {
		t.Fatalf("unexpected rolling settings: %+v", opts)
	}
	if opts.Compress {
		t.Fatalf("expected compression disabled")
	}
}
