// Package cache holds the Redis client and the revoked-token blacklist kept
// in it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist remembers access tokens revoked before their expiry.
type Blacklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenKey hashes the token so keys stay short and no credential is stored.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type RedisBlacklist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client, prefix string) *RedisBlacklist {
	return &RedisBlacklist{client: client, prefix: prefix + "blacklist:token:", now: time.Now}
}

// Revoke keeps the entry for the token's remaining lifetime. Expired tokens
// are already rejected and are not stored.
func (b *RedisBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.prefix+tokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !expiresAt.After(b.now()) {
		return nil
	}
	b.entries[tokenKey(token)] = expiresAt
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tokenKey(token)
	expiresAt, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(b.now()) {
		delete(b.entries, key)
		return false, nil
	}
	return true, nil
}
