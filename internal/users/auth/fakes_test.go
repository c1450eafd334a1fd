// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/accounts/internal/notify"
	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/auth"
)

// # Clock

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Users

type memoryUsers struct {
	mu        sync.Mutex
	byID      map[string]auth.User
	createErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]auth.User)}
}

func (users *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	users.mu.Lock()
	defer users.mu.Unlock()

	user, ok := users.byID[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &user, nil
}

func (users *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	users.mu.Lock()
	defer users.mu.Unlock()

	for _, user := range users.byID {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (users *memoryUsers) Create(_ context.Context, user *auth.User) error {
	users.mu.Lock()
	defer users.mu.Unlock()

	if users.createErr != nil {
		return users.createErr
	}
	for _, existing := range users.byID {
		if existing.Email == user.Email {
			return dberr.ErrDuplicate
		}
	}
	users.byID[user.ID] = *user
	return nil
}

func (users *memoryUsers) UpdatePassword(_ context.Context, userID, newHash string) error {
	users.mu.Lock()
	defer users.mu.Unlock()

	user, ok := users.byID[userID]
	if !ok {
		return dberr.ErrNotFound
	}
	user.PasswordHash = newHash
	users.byID[userID] = user
	return nil
}

func (users *memoryUsers) MarkVerified(_ context.Context, userID string) error {
	users.mu.Lock()
	defer users.mu.Unlock()

	user, ok := users.byID[userID]
	if !ok {
		return dberr.ErrNotFound
	}
	user.Status = auth.StatusVerified
	users.byID[userID] = user
	return nil
}

func (users *memoryUsers) delete(id string) {
	users.mu.Lock()
	defer users.mu.Unlock()
	delete(users.byID, id)
}

// # Sessions

type memorySessions struct {
	mu   sync.Mutex
	byID map[string]auth.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byID: make(map[string]auth.Session)}
}

func (sessions *memorySessions) Create(_ context.Context, session *auth.Session) error {
	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	sessions.byID[session.ID] = *session
	return nil
}

func (sessions *memorySessions) FindByID(_ context.Context, id string) (*auth.Session, error) {
	sessions.mu.Lock()
	defer sessions.mu.Unlock()

	session, ok := sessions.byID[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &session, nil
}

func (sessions *memorySessions) RotateHash(_ context.Context, id, expected, next string) error {
	sessions.mu.Lock()
	defer sessions.mu.Unlock()

	session, ok := sessions.byID[id]
	if !ok || session.Hash != expected {
		return apperr.ErrConflict
	}
	session.Hash = next
	sessions.byID[id] = session
	return nil
}

func (sessions *memorySessions) Delete(_ context.Context, id string) error {
	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	delete(sessions.byID, id)
	return nil
}

func (sessions *memorySessions) count() int {
	sessions.mu.Lock()
	defer sessions.mu.Unlock()
	return len(sessions.byID)
}

// # Cache

type cacheEntry struct {
	value     string
	count     int64
	expiresAt time.Time
}

// memoryCache expires entries against the shared fake clock.
type memoryCache struct {
	mu        sync.Mutex
	clock     *fakeClock
	entries   map[string]cacheEntry
	getErr    error
	deleteErr error
}

func newMemoryCache(clock *fakeClock) *memoryCache {
	return &memoryCache{clock: clock, entries: make(map[string]cacheEntry)}
}

func (cache *memoryCache) live(key string) (cacheEntry, bool) {
	entry, ok := cache.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if !cache.clock.Now().Before(entry.expiresAt) {
		delete(cache.entries, key)
		return cacheEntry{}, false
	}
	return entry, true
}

func (cache *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if ttl <= 0 {
		return nil
	}
	cache.entries[key] = cacheEntry{value: value, expiresAt: cache.clock.Now().Add(ttl)}
	return nil
}

func (cache *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cache.getErr != nil {
		return "", false, cache.getErr
	}
	entry, ok := cache.live(key)
	return entry.value, ok, nil
}

func (cache *memoryCache) Delete(_ context.Context, key string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, key)
	return nil
}

func (cache *memoryCache) DeleteIfEqual(_ context.Context, key, value string) (bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cache.deleteErr != nil {
		return false, cache.deleteErr
	}
	entry, ok := cache.live(key)
	if !ok || entry.value != value {
		return false, nil
	}
	delete(cache.entries, key)
	return true, nil
}

func (cache *memoryCache) IncrementOrInit(_ context.Context, key string, window time.Duration) (int64, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry, ok := cache.live(key)
	if !ok {
		entry = cacheEntry{expiresAt: cache.clock.Now().Add(window)}
	}
	entry.count++
	cache.entries[key] = entry
	return entry.count, nil
}

func (cache *memoryCache) has(key string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.live(key)
	return ok
}

// # Notifier

type notification struct {
	kind    notify.Kind
	payload notify.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (notifier *recordingNotifier) Enqueue(_ context.Context, kind notify.Kind, payload notify.Payload) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.sent = append(notifier.sent, notification{kind: kind, payload: payload})
}

func (notifier *recordingNotifier) all() []notification {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return append([]notification(nil), notifier.sent...)
}

// last returns the most recent token sent with kind.
func (notifier *recordingNotifier) last(t *testing.T, kind notify.Kind) string {
	t.Helper()

	sent := notifier.all()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].kind == kind {
			return sent[i].payload.Token
		}
	}
	t.Fatalf("no %s notification recorded", kind)
	return ""
}

// # Fixture

const (
	testAccessTTL   = 15 * time.Minute
	testRefreshTTL  = 30 * 24 * time.Hour
	testResetTTL    = 30 * time.Minute
	testVerifyTTL   = 24 * time.Hour
	testMaxAttempts = 3
	testWindow      = time.Hour
)

type fixture struct {
	clock    *fakeClock
	users    *memoryUsers
	sessions *memorySessions
	cache    *memoryCache
	notifier *recordingNotifier
	signer   *sec.Signer
	hasher   *sec.Hasher
	service  *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newSkewedFixture(t, 0)
}

// newSkewedFixture builds a fixture whose signer tolerates skew past expiry.
func newSkewedFixture(t *testing.T, skew time.Duration) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	signer, err := sec.NewSigner(sec.SignerConfig{
		Issuer:    "accounts-test",
		ClockSkew: skew,
		Access:    sec.SigningKey{Secret: []byte("access-secret"), TTL: testAccessTTL},
		Refresh:   sec.SigningKey{Secret: []byte("refresh-secret"), TTL: testRefreshTTL},
		Reset:     sec.SigningKey{Secret: []byte("reset-secret"), TTL: testResetTTL},
		Verify:    sec.SigningKey{Secret: []byte("verify-secret"), TTL: testVerifyTTL},
		Now:       clock.Now,
	})
	require.NoError(t, err)

	hasher, err := sec.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		clock:    clock,
		users:    newMemoryUsers(),
		sessions: newMemorySessions(),
		cache:    newMemoryCache(clock),
		notifier: &recordingNotifier{},
		signer:   signer,
		hasher:   hasher,
	}

	f.service = auth.NewService(f.users, f.sessions, f.cache, f.notifier, signer, hasher, auth.ServiceConfig{
		ResetMaxAttempts:   testMaxAttempts,
		ResetAttemptWindow: testWindow,
		Now:                clock.Now,
	})
	return f
}

// seedUser stores an account directly, bypassing registration.
func (f *fixture) seedUser(t *testing.T, email, password string, status auth.Status) *auth.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	user := &auth.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "A",
		LastName:     "B",
		Role:         sec.RoleMember,
		Status:       status,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

var errCacheDown = errors.New("cache: connection refused")
