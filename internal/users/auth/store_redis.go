// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript bumps a counter and starts its window on the first hit only,
// so repeated requests cannot push the expiry forward.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// compareAndDeleteScript removes a key only if it still holds the expected value.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache implements [Cache] using Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis-backed Cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

/*
Set stores value under key with a TTL.

Description: A non-positive ttl is treated as already expired and the write is
skipped, matching what a reader would observe anyway.

Parameters:
  - context: context.Context
  - key: string
  - value: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (cache *RedisCache) Set(context context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := cache.client.Set(context, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_cache_set_failed: %w", err)
	}
	return nil
}

/*
Get retrieves the value stored under key.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - string: Stored value
  - bool: Whether the key was present
  - error: Connectivity errors (a missing key is not an error)
*/
func (cache *RedisCache) Get(context context.Context, key string) (string, bool, error) {
	value, err := cache.client.Get(context, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis_cache_get_failed: %w", err)
	}
	return value, true, nil
}

// Delete removes key.
func (cache *RedisCache) Delete(context context.Context, key string) error {
	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_cache_delete_failed: %w", err)
	}
	return nil
}

// DeleteIfEqual runs the compare-and-delete script atomically on the server.
func (cache *RedisCache) DeleteIfEqual(context context.Context, key, value string) (bool, error) {
	deleted, err := compareAndDeleteScript.Run(context, cache.client, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("redis_cache_compare_delete_failed: %w", err)
	}
	return deleted == 1, nil
}

// IncrementOrInit runs the increment script atomically on the server.
func (cache *RedisCache) IncrementOrInit(context context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrementScript.Run(context, cache.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis_cache_increment_failed: %w", err)
	}
	return count, nil
}
