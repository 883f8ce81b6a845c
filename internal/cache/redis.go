package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/junnyjoe/home-services/internal/config"
)

const pingTimeout = 5 * time.Second

var ErrMissingAddr = errors.New("redis addr is empty")

// NewRedisClient connects to the shared session store and checks it answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: pingTimeout,
	})

	if err := Ping(client)(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", cfg.Addr, cfg.DB, err)
	}

	return client, nil
}

// Ping returns a bounded liveness check for client.
func Ping(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}
