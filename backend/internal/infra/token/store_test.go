package token

import (
	"context"
	"regexp"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

func TestGenerateKeyFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		key, err := GenerateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		if !keyPattern.MatchString(key) {
			t.Fatalf("unexpected key format: %q", key)
		}
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = struct{}{}
	}
}

type store interface {
	GetOrCreate(ctx context.Context, userID uint) (string, error)
	Resolve(ctx context.Context, key string) (uint, bool, error)
	Revoke(ctx context.Context, userID uint) error
}

func newRedisStore(t *testing.T) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenStore(client, ""), server
}

func TestTokenStoresLifecycle(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]store{
		"memory": NewMemoryTokenStore(),
		"redis":  redisStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.GetOrCreate(ctx, 7)
			if err != nil {
				t.Fatalf("get or create: %v", err)
			}
			second, err := s.GetOrCreate(ctx, 7)
			if err != nil {
				t.Fatalf("get or create again: %v", err)
			}
			if first != second {
				t.Fatalf("expected token reuse, got %s and %s", first, second)
			}

			other, err := s.GetOrCreate(ctx, 8)
			if err != nil {
				t.Fatalf("get or create other: %v", err)
			}
			if other == first {
				t.Fatalf("different users must not share a token")
			}

			userID, ok, err := s.Resolve(ctx, first)
			if err != nil || !ok || userID != 7 {
				t.Fatalf("resolve: id=%d ok=%v err=%v", userID, ok, err)
			}

			if err := s.Revoke(ctx, 7); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if _, ok, err := s.Resolve(ctx, first); err != nil || ok {
				t.Fatalf("revoked token still resolves: ok=%v err=%v", ok, err)
			}
			if err := s.Revoke(ctx, 7); err != nil {
				t.Fatalf("second revoke should be a no-op: %v", err)
			}

			fresh, err := s.GetOrCreate(ctx, 7)
			if err != nil {
				t.Fatalf("get or create after revoke: %v", err)
			}
			if fresh == first {
				t.Fatalf("expected a new token after revoke")
			}

			if _, ok, _ := s.Resolve(ctx, "missing"); ok {
				t.Fatalf("unknown token must not resolve")
			}
		})
	}
}

func TestRedisTokenStoreKeyLayout(t *testing.T) {
	store, server := newRedisStore(t)
	ctx := context.Background()

	key, err := store.GetOrCreate(ctx, 42)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	if got, err := server.Get("auth:token:user:42"); err != nil || got != key {
		t.Fatalf("user index mismatch: got %q err=%v", got, err)
	}
	if got, err := server.Get("auth:token:key:" + key); err != nil || got != "42" {
		t.Fatalf("key index mismatch: got %q err=%v", got, err)
	}
	if ttl := server.TTL("auth:token:key:" + key); ttl != 0 {
		t.Fatalf("tokens must not expire, ttl=%v", ttl)
	}
}

func TestRedisTokenStoreRepairsHalfWrittenEntry(t *testing.T) {
	store, server := newRedisStore(t)
	ctx := context.Background()

	const stale = "0123456789abcdef0123456789abcdef01234567"
	if err := server.Set("auth:token:user:5", stale); err != nil {
		t.Fatalf("seed: %v", err)
	}

	key, err := store.GetOrCreate(ctx, 5)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if key != stale {
		t.Fatalf("expected existing token %s, got %s", stale, key)
	}
	if userID, ok, err := store.Resolve(ctx, stale); err != nil || !ok || userID != 5 {
		t.Fatalf("expected reverse index to be repaired: id=%d ok=%v err=%v", userID, ok, err)
	}
}
