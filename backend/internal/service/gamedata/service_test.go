package gamedata

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "sphere-game-data/backend/internal/domain/gamedata"
	"sphere-game-data/backend/internal/infra/validation"
	"sphere-game-data/backend/internal/repository"
	"sphere-game-data/backend/internal/testsupport"
)

func newTestService(t *testing.T) (*Service, *repository.GameDataRepository) {
	t.Helper()
	db := testsupport.OpenSQLite(t, &domain.Record{})
	repo := repository.NewGameDataRepository(db)
	return NewService(repo), repo
}

// steppingClock 每次调用前进一秒，保证 created_at 严格递增。
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(time.Second)
		return now
	}
}

func TestServiceCreateAndGet(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	entry, err := svc.Create(ctx, []byte(validBody))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.ID == 0 || !entry.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected server fields: id=%d created_at=%v", entry.ID, entry.CreatedAt)
	}

	total, err := repo.Count(ctx)
	if err != nil || total != 1 {
		t.Fatalf("expected one stored record, got %d err=%v", total, err)
	}

	loaded, err := svc.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.SessionID != "s1" || loaded.EventCategory != "general" || len(loaded.GameSequence) != 2 {
		t.Fatalf("unexpected entry: %+v", loaded)
	}
}

func TestServiceCreateInvalidStoresNothing(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, []byte(`{"event_type": "x"}`))
	if _, ok := validation.As(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if total, _ := repo.Count(ctx); total != 0 {
		t.Fatalf("invalid payload must not be stored, count=%d", total)
	}
}

func TestServiceListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.SetClock(steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	var ids []uint
	for i := 0; i < 3; i++ {
		entry, err := svc.Create(ctx, []byte(validBody))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, entry.ID)
	}

	for round := 0; round < 2; round++ {
		entries, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, entry := range entries {
			if want := ids[len(ids)-1-i]; entry.ID != want {
				t.Fatalf("round %d position %d: expected id %d, got %d", round, i, want, entry.ID)
			}
		}
	}
}

func TestServiceListEmptyIsNotNil(t *testing.T) {
	svc, _ := newTestService(t)
	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestServiceReplaceIsFullReplace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	original, err := svc.Create(ctx, []byte(`{
		"event_at": "2024-01-01T12:00:00Z",
		"event_type": "game_start",
		"event_category": "custom",
		"ip_address": "10.0.0.1",
		"mac_address": "AA:BB:CC:DD:EE:FF",
		"session_id": "s1",
		"game_level": 1,
		"game_mode": "classic",
		"game_color": "red",
		"game_sequence": ["red"],
		"game_player_input": ["red"],
		"retry_count": 4
	}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.SetClock(func() time.Time { return fixed.Add(time.Hour) })
	updated, err := svc.Replace(ctx, original.ID, []byte(validBody))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if updated.ID != original.ID || !updated.CreatedAt.Equal(fixed) {
		t.Fatalf("id and created_at must not change: %+v", updated)
	}
	if updated.EventType != "game_end" || updated.GameLevel != 2 {
		t.Fatalf("fields not replaced: %+v", updated)
	}
	if updated.EventCategory != "general" || updated.MACAddress != domain.DefaultMACAddress || updated.RetryCount != 0 {
		t.Fatalf("omitted optional fields should reset to defaults: %+v", updated)
	}
	if updated.GameColor != nil {
		t.Fatalf("omitted nullable field should reset to null, got %v", *updated.GameColor)
	}

	reloaded, err := svc.Get(ctx, original.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.EventType != "game_end" || reloaded.GameColor != nil || !reloaded.CreatedAt.Equal(fixed) {
		t.Fatalf("replacement not persisted: %+v", reloaded)
	}
}

func TestServiceNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 42); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	// 记录不存在时优先返回 not found，即使请求体同样无效。
	if _, err := svc.Replace(ctx, 42, []byte(`{}`)); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("replace: expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, 42); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
}

func TestServiceReplaceInvalidKeepsRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, []byte(validBody))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Replace(ctx, entry.ID, []byte(`{"game_level": "x"}`)); err == nil {
		t.Fatalf("expected validation error")
	}

	reloaded, err := svc.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.GameLevel != 2 {
		t.Fatalf("failed replace must not modify the record: %+v", reloaded)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, []byte(validBody))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if total, _ := repo.Count(ctx); total != 0 {
		t.Fatalf("expected hard delete, count=%d", total)
	}
	if _, err := svc.Get(ctx, entry.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
