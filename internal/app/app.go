// Package app assembles the client core: stores, session guard, API client,
// validation engine and auth flows, all sharing one session state.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/api"
	"github.com/junnyjoe/home-services/internal/auth"
	"github.com/junnyjoe/home-services/internal/cache"
	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/guard"
	"github.com/junnyjoe/home-services/internal/i18n"
	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/log"
	"github.com/junnyjoe/home-services/internal/validation"
)

const storeRedis = "redis"

type Options struct {
	Navigator  guard.Navigator
	HTTPClient *http.Client
	// Redis is used for the stores configured as "redis". When nil, a client
	// is opened from the redis config section and closed by Close.
	Redis  *redis.Client
	Logger zerolog.Logger
}

type App struct {
	Config     *config.AppConfig
	Persistent *kvstore.SafeStore
	Tab        *kvstore.SafeStore
	Guard      *guard.Guard
	API        *api.Client
	Validation *validation.Engine
	I18n       *i18n.Translator
	Auth       *auth.Service

	log       zerolog.Logger
	redis     *redis.Client
	ownsRedis bool
}

func New(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	a := &App{Config: cfg, log: opts.Logger, redis: opts.Redis}

	if needsRedis(cfg.Session) && a.redis == nil {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("session stores: %w", err)
		}
		a.redis, a.ownsRedis = client, true
	}

	var persistent kvstore.Store = kvstore.NewMemoryStore()
	if cfg.Session.CredentialStore == storeRedis {
		persistent = kvstore.NewRedisStore(a.redis, cfg.Redis.KeyPrefix)
	}
	storeLog := log.Component(a.log, "store")
	a.Persistent = kvstore.NewSafeStore(persistent, storeLog)
	a.Tab = kvstore.NewSafeStore(kvstore.NewMemoryStore(), storeLog)

	var attempts guard.AttemptStore = guard.NewMemoryAttemptStore()
	if cfg.Session.AttemptStore == storeRedis {
		attempts = guard.NewRedisAttemptStore(a.redis, cfg.Redis.KeyPrefix)
	}

	a.Guard = guard.New(guard.Options{
		Config:     cfg.Session,
		Origin:     cfg.API.Origin,
		Attempts:   attempts,
		Persistent: a.Persistent,
		Tab:        a.Tab,
		Navigator:  opts.Navigator,
		Logger:     log.Component(a.log, "guard"),
	})

	a.API = api.New(api.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		DefaultLanguage: cfg.API.DefaultLanguage,
		HTTPClient:      opts.HTTPClient,
		Store:           a.Persistent,
		CSRF:            a.Guard,
		OnUnauthorized:  a.Guard.HandleUnauthorized,
		Logger:          log.Component(a.log, "api"),
	})
	a.Guard.SetRefresher(a.API)

	a.Validation = validation.NewEngine(log.Component(a.log, "validation"))
	a.I18n = i18n.New()
	a.Auth = auth.NewService(a.Guard, a.API, a.Validation, a.I18n, a.Persistent, log.Component(a.log, "auth"))

	return a, nil
}

func needsRedis(cfg config.SessionConfig) bool {
	return cfg.AttemptStore == storeRedis || cfg.CredentialStore == storeRedis
}

// Resume restarts the session tasks when stored credentials survive from an
// earlier run. It reports whether a session was resumed.
func (a *App) Resume(ctx context.Context) bool {
	if !a.Guard.IsAuthenticated(ctx) {
		return false
	}
	a.Guard.MarkActive()
	a.Guard.CSRFToken(ctx)
	if err := a.Guard.Start(); err != nil {
		a.log.Error().Err(err).Msg("resume session tasks")
		return false
	}
	a.log.Info().Msg("session resumed")
	return true
}

// Close stops the session tasks and releases the Redis client it opened.
func (a *App) Close() error {
	a.Guard.Stop()
	if a.ownsRedis {
		return a.redis.Close()
	}
	return nil
}
