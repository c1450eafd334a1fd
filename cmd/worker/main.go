// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command worker drains the notification queue and delivers account emails.
//
// It shares configuration with cmd/api. When MAIL_SMTP_ADDR is unset the
// rendered messages are logged instead of sent.
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

	"github.com/taibuivan/accounts/internal/mail"
	"github.com/taibuivan/accounts/internal/notify"
	"github.com/taibuivan/accounts/internal/platform/config"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	redisstore "github.com/taibuivan/accounts/internal/platform/redis"
)

// metricsAddr is where the worker exposes its Prometheus registry.
const metricsAddr = ":9090"

func main() {
	cfg, cfgErr := config.Load()

	level := slog.LevelInfo
	if cfgErr == nil && cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "accounts-worker"))
	slog.SetDefault(log)

	must(log, cfgErr, "load configuration")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, "accounts-worker", log)
	must(log, err, "connect to redis")
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// Sender selection
	var sender mail.Sender = mail.NewLogSender(log)
	if cfg.Mail.SMTPAddr != "" {
		smtpSender, err := mail.NewSMTPSender(cfg.Mail.SMTPAddr, cfg.Mail.From, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword)
		must(log, err, "configure smtp sender")
		sender = smtpSender
	} else {
		log.Warn("smtp_not_configured", slog.String("sender", "log"))
	}

	registry := metrics.New()
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           registry.Handler(),
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", slog.Any("error", err))
		}
	}()

	worker := notify.NewWorker(
		notify.NewRedisQueue(rdb, cfg.Notify.Queue),
		mail.NewMailer(cfg.AppURL, sender),
		notify.WorkerConfig{
			MaxAttempts: cfg.Notify.MaxAttempts,
			Backoff:     cfg.Notify.Backoff,
		},
		log,
		registry,
	)

	runErr := worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown error", slog.Any("error", err))
	}

	if runErr != nil {
		log.Error("worker stopped with error", slog.Any("error", runErr))
		os.Exit(1)
	}
	log.Info("worker stopped cleanly")
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
