// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taibuivan/accounts/internal/platform/metrics"
)

// Handler performs the side effect a job stands for, such as sending an email.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// Queue is the consumer side of a reliable queue. [*RedisQueue] implements it.
type Queue interface {
	Reserve(ctx context.Context, wait time.Duration) (Job, string, error)
	Ack(ctx context.Context, raw string) error
	Retry(ctx context.Context, raw string, job Job, due time.Time) error
	Fail(ctx context.Context, raw string) error
	Promote(ctx context.Context, now time.Time, limit int) (int, error)
	Recover(ctx context.Context) (int, error)
}

// WorkerConfig tunes retries and polling.
type WorkerConfig struct {
	// MaxAttempts counts the first try.
	MaxAttempts int
	// Backoff is the delay after the first failure; it doubles per attempt.
	Backoff time.Duration
	// PollInterval bounds how long one Reserve call blocks.
	PollInterval time.Duration
	// HandleTimeout bounds a single Handle call.
	HandleTimeout time.Duration
}

const (
	defaultPollInterval  = 2 * time.Second
	defaultHandleTimeout = 30 * time.Second
	promoteBatch         = 100
	errorPause           = time.Second
)

// Worker drains a [Queue] and retries failed jobs with exponential backoff.
type Worker struct {
	queue   Queue
	handler Handler
	config  WorkerConfig
	logger  *slog.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// NewWorker wires a worker. Zero durations fall back to defaults.
func NewWorker(queue Queue, handler Handler, config WorkerConfig, logger *slog.Logger, registry *metrics.Registry) *Worker {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.HandleTimeout <= 0 {
		config.HandleTimeout = defaultHandleTimeout
	}
	return &Worker{
		queue:   queue,
		handler: handler,
		config:  config,
		logger:  logger,
		metrics: registry,
		now:     time.Now,
	}
}

// Run processes jobs until ctx is cancelled. It returns nil on cancellation.
func (worker *Worker) Run(ctx context.Context) error {

	// 1. Put back jobs abandoned by a previous process
	recovered, err := worker.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		worker.logger.WarnContext(ctx, "notify_jobs_recovered", slog.Int("count", recovered))
	}

	worker.logger.InfoContext(ctx, "notify_worker_started",
		slog.Int("max_attempts", worker.config.MaxAttempts),
		slog.Duration("backoff", worker.config.Backoff),
	)

	// 2. Reserve / handle loop
	for {
		if ctx.Err() != nil {
			worker.logger.InfoContext(context.WithoutCancel(ctx), "notify_worker_stopped")
			return nil
		}

		if err := worker.Step(ctx); err != nil && ctx.Err() == nil {
			worker.logger.ErrorContext(ctx, "notify_worker_step_failed", slog.Any("error", err))
			worker.pause(ctx)
		}
	}
}

// Step promotes due retries, then reserves and processes at most one job.
func (worker *Worker) Step(ctx context.Context) error {
	if _, err := worker.queue.Promote(ctx, worker.now(), promoteBatch); err != nil {
		return err
	}

	job, raw, err := worker.queue.Reserve(ctx, worker.config.PollInterval)
	switch {
	case errors.Is(err, ErrEmpty):
		return nil
	case err != nil && raw == "":
		return err
	case err != nil:
		// Malformed payloads can never succeed; park them.
		worker.logger.ErrorContext(ctx, "notify_job_malformed", slog.Any("error", err))
		return worker.queue.Fail(ctx, raw)
	}

	return worker.process(ctx, job, raw)
}

func (worker *Worker) process(ctx context.Context, job Job, raw string) error {
	job.Attempt++

	logger := worker.logger.With(
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Int("attempt", job.Attempt),
	)

	handleCtx, cancel := context.WithTimeout(ctx, worker.config.HandleTimeout)
	handleErr := worker.handler.Handle(handleCtx, job)
	cancel()

	// Acks must land even when shutdown races the handler.
	ackCtx := context.WithoutCancel(ctx)

	if handleErr == nil {
		worker.metrics.NotifyJob(string(job.Kind), "delivered")
		logger.InfoContext(ctx, "notify_job_delivered")
		return worker.queue.Ack(ackCtx, raw)
	}

	if job.Attempt >= worker.config.MaxAttempts {
		worker.metrics.NotifyJob(string(job.Kind), "failed")
		logger.ErrorContext(ctx, "notify_job_failed", slog.Any("error", handleErr))
		return worker.queue.Fail(ackCtx, raw)
	}

	delay := Backoff(worker.config.Backoff, job.Attempt)
	worker.metrics.NotifyJob(string(job.Kind), "retried")
	logger.WarnContext(ctx, "notify_job_retry_scheduled",
		slog.Duration("delay", delay),
		slog.Any("error", handleErr),
	)
	return worker.queue.Retry(ackCtx, raw, job, worker.now().Add(delay))
}

func (worker *Worker) pause(ctx context.Context) {
	timer := time.NewTimer(errorPause)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
