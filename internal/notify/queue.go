// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/accounts/internal/platform/constants"
)

// ErrEmpty is returned by [RedisQueue.Reserve] when no job arrived in time.
var ErrEmpty = errors.New("notify: queue empty")

// # Key Layout
//
//	queue:{name}             ready jobs, pushed on the left, reserved from the right
//	queue:{name}:processing  jobs reserved by a worker and not yet acked
//	queue:{name}:delayed     sorted set of retries scored by due time (unix ms)
//	queue:{name}:failed      jobs that exhausted their attempts

// promoteScript moves every delayed job whose score is due onto the ready list.
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
for _, job in ipairs(due) do
	redis.call("ZREM", KEYS[1], job)
	redis.call("LPUSH", KEYS[2], job)
end
return #due
`)

// RedisQueue is a reliable FIFO queue on Redis lists.
type RedisQueue struct {
	client     *redis.Client
	ready      string
	processing string
	delayed    string
	failed     string
}

// NewRedisQueue returns the queue named name (e.g. "email").
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	base := constants.RedisPrefixQueue + name
	return &RedisQueue{
		client:     client,
		ready:      base,
		processing: base + ":processing",
		delayed:    base + ":delayed",
		failed:     base + ":failed",
	}
}

// Push appends a job to the ready list.
func (queue *RedisQueue) Push(ctx context.Context, job Job) error {
	raw, err := job.Encode()
	if err != nil {
		return err
	}
	if err := queue.client.LPush(ctx, queue.ready, raw).Err(); err != nil {
		return fmt.Errorf("notify: push to %s failed: %w", queue.ready, err)
	}
	return nil
}

// Reserve blocks up to wait for the oldest ready job and moves it onto the
// processing list atomically. The returned raw string is the ack handle.
//
// A job that cannot be decoded is still returned as raw with a non-nil
// error so the caller can discard it.
func (queue *RedisQueue) Reserve(ctx context.Context, wait time.Duration) (Job, string, error) {
	raw, err := queue.client.BLMove(ctx, queue.ready, queue.processing, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, "", ErrEmpty
	}
	if err != nil {
		return Job{}, "", fmt.Errorf("notify: reserve from %s failed: %w", queue.ready, err)
	}

	job, err := DecodeJob(raw)
	return job, raw, err
}

// Ack removes a reserved job from the processing list.
func (queue *RedisQueue) Ack(ctx context.Context, raw string) error {
	if err := queue.client.LRem(ctx, queue.processing, 1, raw).Err(); err != nil {
		return fmt.Errorf("notify: ack failed: %w", err)
	}
	return nil
}

// Retry acks raw and schedules job to become ready again at due.
func (queue *RedisQueue) Retry(ctx context.Context, raw string, job Job, due time.Time) error {
	encoded, err := job.Encode()
	if err != nil {
		return err
	}

	_, err = queue.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, queue.delayed, redis.Z{Score: float64(due.UnixMilli()), Member: encoded})
		pipe.LRem(ctx, queue.processing, 1, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify: schedule retry failed: %w", err)
	}
	return nil
}

// Fail acks raw and parks it on the failed list for inspection.
func (queue *RedisQueue) Fail(ctx context.Context, raw string) error {
	_, err := queue.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, queue.failed, raw)
		pipe.LRem(ctx, queue.processing, 1, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify: park failed job: %w", err)
	}
	return nil
}

// Promote moves up to limit due retries onto the ready list and returns how
// many were moved.
func (queue *RedisQueue) Promote(ctx context.Context, now time.Time, limit int) (int, error) {
	moved, err := promoteScript.Run(ctx, queue.client,
		[]string{queue.delayed, queue.ready},
		strconv.FormatInt(now.UnixMilli(), 10), limit,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("notify: promote delayed jobs failed: %w", err)
	}
	return moved, nil
}

// Recover returns jobs left on the processing list by a crashed worker to
// the ready list. It must run before the worker starts reserving.
func (queue *RedisQueue) Recover(ctx context.Context) (int, error) {
	recovered := 0
	for {
		err := queue.client.LMove(ctx, queue.processing, queue.ready, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return recovered, nil
		}
		if err != nil {
			return recovered, fmt.Errorf("notify: recover processing jobs failed: %w", err)
		}
		recovered++
	}
}
