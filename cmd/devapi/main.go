// Command devapi serves the marketplace auth endpoints the client core talks
// to, for local runs and integration tests.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/cache"
	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/database"
	"github.com/junnyjoe/home-services/internal/handlers"
	"github.com/junnyjoe/home-services/internal/i18n"
	"github.com/junnyjoe/home-services/internal/jobs"
	"github.com/junnyjoe/home-services/internal/log"
	"github.com/junnyjoe/home-services/internal/repository"
	"github.com/junnyjoe/home-services/internal/server"
	"github.com/junnyjoe/home-services/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)
	if cfg.Security.JWTAccessSecret == "" {
		logger.Fatal().Msg("security.jwtaccesssecret is required")
	}

	if len(cfg.AllowCORSOrigins) == 0 {
		logger.Warn().Msg("allowcorsorigins is empty, every origin may call the api")
	}

	ctx := context.Background()
	var closers []func()
	checks := map[string]handlers.Check{}

	var (
		users    repository.Users    = repository.NewMemoryUsers()
		sessions repository.Sessions = repository.NewMemorySessions()
	)
	if cfg.Postgres.DSN != "" {
		dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate postgres")
		}
		users = repository.NewUserRepository(dbPool)
		sessions = repository.NewSessionRepository(dbPool)
		checks["database"] = dbPool.Ping
		closers = append(closers, dbPool.Close)
	} else {
		logger.Warn().Msg("postgres.dsn not set, accounts are kept in memory")
	}

	var blacklist cache.Blacklist = cache.NewMemoryBlacklist()
	if cfg.DevAPI.CacheStore == "redis" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		blacklist = cache.NewRedisBlacklist(redisClient, cfg.Redis.KeyPrefix)
		checks["cache"] = cache.Ping(redisClient)
		closers = append(closers, closeRedis(logger, redisClient))
	}

	auth := service.NewAuthService(users, sessions, blacklist, cfg.Security, log.Component(logger, "auth"))
	handlerSet := handlers.NewHandlerSet(logger, cfg, auth, i18n.New(), checks)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(log.Component(logger, "jobs"), jobs.Task{
		Name:  "session-sweep",
		Every: cfg.DevAPI.SweepInterval,
		Run:   auth.SweepExpiredSessions,
	})
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, closers)
}

func closeRedis(logger zerolog.Logger, client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, closers []func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	<-scheduler.Stop().Done()

	for _, closeFn := range closers {
		closeFn()
	}

	logger.Info().Msg("server exited cleanly")
}
