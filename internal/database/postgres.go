package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/junnyjoe/home-services/internal/config"
)

const (
	applicationName = "homeservices-devapi"
	connectTimeout  = 10 * time.Second
)

var ErrMissingDSN = errors.New("postgres dsn is empty")

// PoolConfig turns the postgres settings into a pool config. MaxIdle above
// MaxOpen is clamped, and a zero MaxOpen keeps the pgx default.
func PoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxOpen > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpen)
	}
	idle := int32(cfg.MaxIdle)
	if idle > poolConfig.MaxConns {
		idle = poolConfig.MaxConns
	}
	if idle > 0 {
		poolConfig.MinConns = idle
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return poolConfig, nil
}

// NewPostgresPool opens the account store and checks it answers.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s/%s: %w", poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Database, err)
	}

	return pool, nil
}
