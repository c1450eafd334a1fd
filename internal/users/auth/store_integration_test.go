// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/platform/migration"
	"github.com/taibuivan/accounts/internal/platform/postgres"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/auth"
	"github.com/taibuivan/accounts/pkg/uuid"
)

// Integration tests are enabled when TEST_DATABASE_URL / TEST_REDIS_URL are set.

const migrationsPath = "../../../data/migrations"

func mustPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set; skipping PostgreSQL integration test")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, migration.RunUp(dsn, migrationsPath, logger))

	pool, err := postgres.NewPool(context.Background(), dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func mustRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL is not set; skipping Redis integration test")
	}

	options, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	client := redis.NewClient(options)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func newStoredUser(t *testing.T, users *auth.PostgresUserRepository) *auth.User {
	t.Helper()

	user := &auth.User{
		ID:           uuid.New(),
		Email:        uuid.New() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "A",
		LastName:     "B",
		Role:         sec.RoleMember,
		Status:       auth.StatusUnverified,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

/*
TestPostgresUserRepository covers lookups, the unique email index and the
idempotent verification update.
*/
func TestPostgresUserRepository(t *testing.T) {
	pool := mustPostgres(t)
	ctx := context.Background()
	users := auth.NewUserRepository(pool)

	user := newStoredUser(t, users)

	found, err := users.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, auth.StatusUnverified, found.Status)

	duplicate := *user
	duplicate.ID = uuid.New()
	assert.ErrorIs(t, users.Create(ctx, &duplicate), dberr.ErrDuplicate)

	require.NoError(t, users.UpdatePassword(ctx, user.ID, "new-hash"))
	found, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)

	require.NoError(t, users.MarkVerified(ctx, user.ID))
	require.NoError(t, users.MarkVerified(ctx, user.ID))
	found, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusVerified, found.Status)

	missing := uuid.New()
	_, err = users.FindByID(ctx, missing)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
	assert.ErrorIs(t, users.MarkVerified(ctx, missing), dberr.ErrNotFound)
	assert.ErrorIs(t, users.UpdatePassword(ctx, missing, "x"), dberr.ErrNotFound)
}

/*
TestPostgresSessionRepository_RotateHash checks the compare-and-set update,
including many concurrent rotations from the same prior hash.
*/
func TestPostgresSessionRepository_RotateHash(t *testing.T) {
	pool := mustPostgres(t)
	ctx := context.Background()
	sessions := auth.NewSessionRepository(pool)
	user := newStoredUser(t, auth.NewUserRepository(pool))

	session := &auth.Session{ID: uuid.New(), UserID: user.ID, Hash: "h0"}
	require.NoError(t, sessions.Create(ctx, session))

	// 1. Sequential rotation
	require.NoError(t, sessions.RotateHash(ctx, session.ID, "h0", "h1"))
	assert.ErrorIs(t, sessions.RotateHash(ctx, session.ID, "h0", "h2"), apperr.ErrConflict)

	// 2. Concurrent rotation
	const callers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sessions.RotateHash(ctx, session.ID, "h1", "next-"+string(rune('a'+i))) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	// 3. Delete is idempotent
	require.NoError(t, sessions.Delete(ctx, session.ID))
	require.NoError(t, sessions.Delete(ctx, session.ID))

	_, err := sessions.FindByID(ctx, session.ID)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
	assert.ErrorIs(t, sessions.RotateHash(ctx, session.ID, "h1", "h3"), apperr.ErrConflict)
}

/*
TestRedisCache covers get/set/delete and the fixed-window counter.
*/
func TestRedisCache(t *testing.T) {
	client := mustRedis(t)
	ctx := context.Background()
	cache := auth.NewRedisCache(client)

	key := "test:auth:" + uuid.New()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	// 1. Set / Get / Delete
	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, key, "true", time.Minute))
	value, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "true", value)

	require.NoError(t, cache.Delete(ctx, key))
	_, found, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// 2. Non-positive TTL never writes
	require.NoError(t, cache.Set(ctx, key, "true", 0))
	_, found, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// 3. Counter window is anchored at the first increment
	for want := int64(1); want <= 3; want++ {
		count, err := cache.IncrementOrInit(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

/*
TestRedisCache_ConcurrentIncrement never loses an increment.
*/
func TestRedisCache_ConcurrentIncrement(t *testing.T) {
	client := mustRedis(t)
	ctx := context.Background()
	cache := auth.NewRedisCache(client)

	key := "test:auth:" + uuid.New()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	const callers = 20

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.IncrementOrInit(ctx, key, time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := client.Get(ctx, key).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(callers), count)
}

/*
TestRedisCache_DeleteIfEqual removes a key only while it holds the expected
value, and only once under concurrent callers.
*/
func TestRedisCache_DeleteIfEqual(t *testing.T) {
	client := mustRedis(t)
	ctx := context.Background()
	cache := auth.NewRedisCache(client)

	key := "test:auth:" + uuid.New()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	require.NoError(t, cache.Set(ctx, key, "token-2", time.Minute))

	// 1. Stale value leaves the key in place
	deleted, err := cache.DeleteIfEqual(ctx, key, "token-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	// 2. Concurrent consumers, a single winner
	const callers = 20

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deleted, err := cache.DeleteIfEqual(ctx, key, "token-2")
			assert.NoError(t, err)
			if deleted {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	_, found, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}
