package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTokenPrefix = "auth:token"
	// KeyLength 是访问令牌的固定长度（十六进制字符）。
	KeyLength = 40
)

// GenerateKey 生成 40 位小写十六进制的随机令牌，熵来自两个随机 UUID。
func GenerateKey() (string, error) {
	first, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	second, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	raw := strings.ReplaceAll(first.String()+second.String(), "-", "")
	return raw[:KeyLength], nil
}

// RedisTokenStore 使用 Redis 保存访问令牌，多实例之间共享状态。
//
// 每个令牌对应两个键：
//   - <prefix>:key:<token>  -> userID，供请求鉴权时反查用户
//   - <prefix>:user:<id>    -> token，保证同一用户重复登录拿到同一个令牌
//
// 令牌没有过期时间，只有登出才会失效。
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore 构造 Redis 令牌存储。
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = defaultTokenPrefix
	}
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) keyOf(token string) string {
	return fmt.Sprintf("%s:key:%s", s.prefix, token)
}

func (s *RedisTokenStore) userOf(userID uint) string {
	return fmt.Sprintf("%s:user:%d", s.prefix, userID)
}

// GetOrCreate 返回用户已有的令牌，没有时通过 SETNX 抢占写入新令牌。
func (s *RedisTokenStore) GetOrCreate(ctx context.Context, userID uint) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("redis client not configured")
	}

	candidate, err := GenerateKey()
	if err != nil {
		return "", err
	}

	won, err := s.client.SetNX(ctx, s.userOf(userID), candidate, 0).Result()
	if err != nil {
		return "", fmt.Errorf("reserve token: %w", err)
	}
	if !won {
		existing, err := s.client.Get(ctx, s.userOf(userID)).Result()
		if err != nil {
			return "", fmt.Errorf("load token: %w", err)
		}
		candidate = existing
	}

	// 两个分支都回写反查键，修复上次写入中途失败留下的半条记录。
	if err := s.client.Set(ctx, s.keyOf(candidate), strconv.FormatUint(uint64(userID), 10), 0).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return candidate, nil
}

// Resolve 根据令牌反查用户 ID。
func (s *RedisTokenStore) Resolve(ctx context.Context, token string) (uint, bool, error) {
	if s == nil || s.client == nil {
		return 0, false, fmt.Errorf("redis client not configured")
	}
	if token == "" {
		return 0, false, nil
	}

	raw, err := s.client.Get(ctx, s.keyOf(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt token entry: %w", err)
	}
	return uint(userID), true, nil
}

// Revoke 删除用户的令牌及其反查键。
func (s *RedisTokenStore) Revoke(ctx context.Context, userID uint) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}

	current, err := s.client.Get(ctx, s.userOf(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.client.Del(ctx, s.userOf(userID), s.keyOf(current)).Err()
}

// MemoryTokenStore 是进程内实现，用于测试以及无外部存储的场景，重启后全部令牌失效。
type MemoryTokenStore struct {
	mu     sync.RWMutex
	byKey  map[string]uint
	byUser map[uint]string
}

// NewMemoryTokenStore 创建进程内令牌存储。
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		byKey:  make(map[string]uint),
		byUser: make(map[uint]string),
	}
}

// GetOrCreate 返回现有令牌或生成新令牌。
func (s *MemoryTokenStore) GetOrCreate(_ context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byUser[userID]; ok {
		return existing, nil
	}
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	s.byUser[userID] = key
	s.byKey[key] = userID
	return key, nil
}

// Resolve 根据令牌查找用户。
func (s *MemoryTokenStore) Resolve(_ context.Context, token string) (uint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byKey[token]
	return userID, ok, nil
}

// Revoke 移除用户令牌。
func (s *MemoryTokenStore) Revoke(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.byUser[userID]; ok {
		delete(s.byKey, key)
		delete(s.byUser, userID)
	}
	return nil
}
