// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the accounts HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration from environment variables.
//  2. Initialize structured logger.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool) and Redis.
//  5. Start the notification dispatcher.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/accounts/internal/api"
	"github.com/taibuivan/accounts/internal/notify"
	"github.com/taibuivan/accounts/internal/platform/config"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/migration"
	pgstore "github.com/taibuivan/accounts/internal/platform/postgres"
	redisstore "github.com/taibuivan/accounts/internal/platform/redis"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/account"
	"github.com/taibuivan/accounts/internal/users/auth"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, cfgErr := config.Load()

	// ── 2. Logger ─────────────────────────────────────────────────────────
	level := slog.LevelInfo
	if cfgErr == nil && cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "accounts-api"))
	slog.SetDefault(log)

	must(log, cfgErr, "load configuration")

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Startup deadline so misconfiguration fails fast instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. PostgreSQL & Redis ─────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, "accounts-api", log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Security primitives ────────────────────────────────────────────
	signer, err := sec.NewSigner(sec.SignerConfig{
		Issuer:    cfg.Auth.Issuer,
		ClockSkew: cfg.Auth.ClockSkew,
		Access:    sec.SigningKey{Secret: []byte(cfg.Auth.AccessSecret), TTL: cfg.Auth.AccessTTL},
		Refresh:   sec.SigningKey{Secret: []byte(cfg.Auth.RefreshSecret), TTL: cfg.Auth.RefreshTTL},
		Reset:     sec.SigningKey{Secret: []byte(cfg.Auth.ResetSecret), TTL: cfg.Auth.ResetTTL},
		Verify:    sec.SigningKey{Secret: []byte(cfg.Auth.VerifySecret), TTL: cfg.Auth.VerifyTTL},
	})
	must(log, err, "initialize token signer")

	hasher, err := sec.NewHasher(0)
	must(log, err, "initialize password hasher")

	registry := metrics.New()

	// Root context of the running process; cancelled on shutdown.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── 6. Notifications ──────────────────────────────────────────────────
	queue := notify.NewRedisQueue(rdb, cfg.Notify.Queue)
	dispatcher := notify.NewDispatcher(queue, cfg.Notify.BufferSize, log, registry)

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(runCtx)
	}()

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(
		auth.NewUserRepository(pool),
		auth.NewSessionRepository(pool),
		auth.NewRedisCache(rdb),
		dispatcher,
		signer,
		hasher,
		auth.ServiceConfig{
			ResetMaxAttempts:   cfg.Auth.ResetMaxAttempts,
			ResetAttemptWindow: cfg.Auth.ResetAttemptWindow,
			Metrics:            registry,
		},
	)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(runCtx, cfg, log, registry, authService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(account.NewService(account.NewAccountRepository(pool))),
		Metrics:   registry.Handler(),
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	// Drain jobs enqueued by the last requests before Redis is closed.
	runCancel()
	<-dispatcherDone

	if shutdownErr != nil {
		log.Error("shutdown error", slog.Any("error", shutdownErr))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
