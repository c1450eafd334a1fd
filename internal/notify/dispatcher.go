// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/accounts/internal/platform/metrics"
)

// pushTimeout bounds a single push to the queue.
const pushTimeout = 3 * time.Second

// Pusher is the write side of the queue.
type Pusher interface {
	Push(ctx context.Context, job Job) error
}

// Dispatcher accepts notifications without blocking the caller and forwards
// them to a [Pusher] from a background goroutine.
//
// Jobs are dropped (and logged) when the buffer is full or the push fails.
type Dispatcher struct {
	pusher  Pusher
	buffer  chan Job
	logger  *slog.Logger
	metrics *metrics.Registry
	now     func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher returns a dispatcher with room for size pending jobs.
// Call [Dispatcher.Run] to start forwarding.
func NewDispatcher(pusher Pusher, size int, logger *slog.Logger, registry *metrics.Registry) *Dispatcher {
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		pusher:  pusher,
		buffer:  make(chan Job, size),
		logger:  logger,
		metrics: registry,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Enqueue hands a notification to the background goroutine. It never blocks
// and never reports failure to the caller.
func (dispatcher *Dispatcher) Enqueue(ctx context.Context, kind Kind, payload Payload) {
	job := NewJob(kind, payload, dispatcher.now())

	select {
	case <-dispatcher.done:
		dispatcher.drop(ctx, job, "dispatcher_closed")
		return
	default:
	}

	select {
	case dispatcher.buffer <- job:
		dispatcher.metrics.NotifyJob(string(kind), "enqueued")
	default:
		dispatcher.drop(ctx, job, "buffer_full")
	}
}

// Run forwards buffered jobs until ctx is cancelled, then flushes whatever
// is still buffered and returns.
func (dispatcher *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case job := <-dispatcher.buffer:
			dispatcher.push(ctx, job)
		case <-ctx.Done():
			dispatcher.closeOnce.Do(func() { close(dispatcher.done) })
			dispatcher.flush()
			return
		}
	}
}

// flush pushes the remaining jobs on a fresh context; the parent is already done.
func (dispatcher *Dispatcher) flush() {
	for {
		select {
		case job := <-dispatcher.buffer:
			dispatcher.push(context.Background(), job)
		default:
			return
		}
	}
}

func (dispatcher *Dispatcher) push(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), pushTimeout)
	defer cancel()

	if err := dispatcher.pusher.Push(ctx, job); err != nil {
		dispatcher.metrics.NotifyJob(string(job.Kind), "dropped")
		dispatcher.logger.ErrorContext(ctx, "notify_push_failed",
			slog.String("job_id", job.ID),
			slog.String("kind", string(job.Kind)),
			slog.Any("error", err),
		)
		return
	}

	dispatcher.logger.DebugContext(ctx, "notify_job_queued",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
	)
}

func (dispatcher *Dispatcher) drop(ctx context.Context, job Job, reason string) {
	dispatcher.metrics.NotifyJob(string(job.Kind), "dropped")
	dispatcher.logger.WarnContext(ctx, "notify_enqueue_dropped",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("reason", reason),
	)
}
