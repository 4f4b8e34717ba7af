package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"sphere-game-data/backend/internal/config"
	gamedata "sphere-game-data/backend/internal/domain/gamedata"
	"sphere-game-data/backend/internal/domain/user"
	"sphere-game-data/backend/internal/repository"
	authsvc "sphere-game-data/backend/internal/service/auth"
	"sphere-game-data/backend/internal/testsupport"

	"go.uber.org/zap"
)

func TestResolveCredentials(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("SEED_ADMIN_USERNAME", "")
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	if name, secret := resolveCredentials("", ""); name != "admin" || secret != "" {
		t.Fatalf("unexpected defaults: %q %q", name, secret)
	}

	t.Setenv("SEED_ADMIN_USERNAME", "ops")
	t.Setenv("SEED_ADMIN_PASSWORD", "from-env")
	if name, secret := resolveCredentials("", ""); name != "ops" || secret != "from-env" {
		t.Fatalf("env values not used: %q %q", name, secret)
	}
	if name, secret := resolveCredentials(" root ", "from-flag"); name != "root" || secret != "from-flag" {
		t.Fatalf("flags should win: %q %q", name, secret)
	}
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	db := testsupport.OpenSQLite(t, &user.User{}, &user.AuthToken{}, &gamedata.Record{})
	svc := authsvc.NewService(repository.NewUserRepository(db), repository.NewTokenRepository(db))
	sugar := zap.NewNop().Sugar()
	ctx := context.Background()

	var first bytes.Buffer
	if err := seedAdmin(ctx, svc, "admin", "s3cret", &first, sugar); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if !strings.HasPrefix(first.String(), "Token for admin: ") {
		t.Fatalf("unexpected output: %q", first.String())
	}

	var second bytes.Buffer
	if err := seedAdmin(ctx, svc, "admin", "other", &second, sugar); err != nil {
		t.Fatalf("seed admin again: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("second run should print the existing token:\n%s\n%s", first.String(), second.String())
	}

	if err := reportSeedSummary(ctx, db, sugar); err != nil {
		t.Fatalf("report summary: %v", err)
	}
	if err := reportSeedSummary(ctx, nil, sugar); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
