// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/accounts/internal/notify"
	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/users/auth"
)

/*
TestService_SignIn covers the success path and both failure kinds.

Steps:
 1. Correct credentials return a pair bound to a stored session.
 2. An unknown email fails with INVALID_CREDENTIALS.
 3. A wrong password fails with UNAUTHORIZED.
 4. Both failures render the same message.
*/
func TestService_SignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	// 1. Success
	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, pair.UserID)
	assert.Equal(t, f.clock.Now().Add(testAccessTTL).UnixMilli(), pair.TokenExpires)

	claims, err := f.signer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	session, err := f.sessions.FindByID(ctx, claims.SessionID)
	require.NoError(t, err)

	refresh, err := f.signer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.ID, refresh.SessionID)
	assert.Equal(t, session.Hash, refresh.Hash)

	// 2. Unknown email
	_, unknownErr := f.service.SignIn(ctx, "nobody@x.com", "Passw0rd!")
	assert.ErrorIs(t, unknownErr, apperr.ErrInvalidCredentials)

	// 3. Wrong password
	_, wrongErr := f.service.SignIn(ctx, "a@x.com", "Wrong0000")
	assert.ErrorIs(t, wrongErr, apperr.ErrUnauthorized)

	// 4. Same client-facing message
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

/*
TestService_SignInDoesNotRequireVerification mirrors the existing product
behavior: unverified accounts may sign in.
*/
func TestService_SignInDoesNotRequireVerification(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "new@x.com", "Passw0rd!", auth.StatusUnverified)

	_, err := f.service.SignIn(context.Background(), "new@x.com", "Passw0rd!")
	assert.NoError(t, err)
}

/*
TestService_RefreshRotation verifies that each refresh rotates the session
hash and that every earlier refresh token becomes unusable.
*/
func TestService_RefreshRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	initial, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	first, err := f.service.RefreshToken(ctx, initial.RefreshToken)
	require.NoError(t, err)
	second, err := f.service.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)

	firstClaims, err := f.signer.VerifyRefresh(first.RefreshToken)
	require.NoError(t, err)
	secondClaims, err := f.signer.VerifyRefresh(second.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, firstClaims.SessionID, secondClaims.SessionID)
	assert.NotEqual(t, firstClaims.Hash, secondClaims.Hash)
	assert.Empty(t, second.UserID)

	for name, token := range map[string]string{
		"initial": initial.RefreshToken,
		"first":   first.RefreshToken,
	} {
		_, err := f.service.RefreshToken(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, name)
	}

	_, err = f.service.RefreshToken(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_RefreshRejections covers every way a refresh token can be refused.
*/
func TestService_RefreshRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture, pair *auth.TokenPair) string
	}{
		{
			name: "garbage",
			setup: func(*testing.T, *fixture, *auth.TokenPair) string {
				return "not-a-token"
			},
		},
		{
			name: "access_token_presented",
			setup: func(_ *testing.T, _ *fixture, pair *auth.TokenPair) string {
				return pair.AccessToken
			},
		},
		{
			name: "expired",
			setup: func(_ *testing.T, f *fixture, pair *auth.TokenPair) string {
				f.clock.Advance(testRefreshTTL + time.Second)
				return pair.RefreshToken
			},
		},
		{
			name: "session_logged_out",
			setup: func(t *testing.T, f *fixture, pair *auth.TokenPair) string {
				claims, err := f.signer.VerifyAccess(pair.AccessToken)
				require.NoError(t, err)
				require.NoError(t, f.service.Logout(ctx, claims))
				return pair.RefreshToken
			},
		},
		{
			name: "owner_deleted",
			setup: func(_ *testing.T, f *fixture, pair *auth.TokenPair) string {
				f.users.delete(pair.UserID)
				return pair.RefreshToken
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

			pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
			require.NoError(t, err)

			_, err = f.service.RefreshToken(ctx, tt.setup(t, f, pair))
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

/*
TestService_ConcurrentRefresh presents the same refresh token from many
goroutines; exactly one may win the rotation.
*/
func TestService_ConcurrentRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	const callers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.service.RefreshToken(ctx, pair.RefreshToken)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

/*
TestService_LogoutBlacklist verifies the revocation of an access token that
is still cryptographically valid, and that the blacklist entry lives exactly
as long as the token.
*/
func TestService_LogoutBlacklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	claims, err := f.service.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	require.NoError(t, f.service.Logout(ctx, claims))

	// 1. Rejected by the service, accepted by the signer alone
	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.signer.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)

	key := constants.RedisPrefixBlacklist + claims.SessionID
	assert.True(t, f.cache.has(key))
	assert.Equal(t, 0, f.sessions.count())

	// 2. Both expire together
	f.clock.Advance(testAccessTTL - 5*time.Minute)
	assert.False(t, f.cache.has(key))

	_, err = f.signer.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)

	// 3. Logout is idempotent
	assert.NoError(t, f.service.Logout(ctx, claims))
}

/*
TestService_LogoutWithinClockSkew keeps a logged out token rejected while the
signer still tolerates it past its expiry.

Steps:
 1. Sign in and log out with one minute of tolerated skew.
 2. Thirty seconds after expiry the signer alone still accepts the token.
 3. The service rejects it because the blacklist entry is still live.
 4. Once the skew window closes, both reject it and the entry is gone.
*/
func TestService_LogoutWithinClockSkew(t *testing.T) {
	f := newSkewedFixture(t, time.Minute)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	// 1. Logout
	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	claims, err := f.service.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(ctx, claims))

	// 2. Inside the skew window
	f.clock.Advance(testAccessTTL + 30*time.Second)

	_, err = f.signer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	// 3. Still revoked
	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.True(t, f.cache.has(constants.RedisPrefixBlacklist+claims.SessionID))

	// 4. Past the window
	f.clock.Advance(30 * time.Second)

	_, err = f.signer.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)
	assert.False(t, f.cache.has(constants.RedisPrefixBlacklist+claims.SessionID))
}

/*
TestService_LogoutIsolatesSessions signs in twice and logs out of one session;
the other keeps working.
*/
func TestService_LogoutIsolatesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	first, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	second, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	firstRefresh, err := f.signer.VerifyRefresh(first.RefreshToken)
	require.NoError(t, err)
	secondRefresh, err := f.signer.VerifyRefresh(second.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, firstRefresh.SessionID, secondRefresh.SessionID)
	assert.NotEqual(t, firstRefresh.Hash, secondRefresh.Hash)
	assert.Equal(t, 2, f.sessions.count())

	claims, err := f.service.VerifyAccessToken(ctx, first.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(ctx, claims))

	_, err = f.service.VerifyAccessToken(ctx, second.AccessToken)
	assert.NoError(t, err)

	_, err = f.service.RefreshToken(ctx, second.RefreshToken)
	assert.NoError(t, err)

	_, err = f.service.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

/*
TestService_LogoutExpiredToken skips the blacklist write but still deletes
the session.
*/
func TestService_LogoutExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	claims, err := f.signer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(testAccessTTL + time.Minute)
	require.NoError(t, f.service.Logout(ctx, claims))

	assert.False(t, f.cache.has(constants.RedisPrefixBlacklist+claims.SessionID))
	assert.Equal(t, 0, f.sessions.count())
}

/*
TestService_VerifyAccessToken_FailsClosed rejects tokens when the blacklist
cannot be read.
*/
func TestService_VerifyAccessToken_FailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	pair, err := f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)

	f.cache.getErr = errCacheDown

	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

/*
TestService_RegisterAndVerifyEmail walks the registration scenario.

Steps:
 1. Register creates an UNVERIFIED user and one EMAIL_VERIFICATION job.
 2. VerifyEmail marks the account VERIFIED and drops the token record.
 3. Replaying the same token succeeds without a new notification.
*/
func TestService_RegisterAndVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 1. Register
	userID, err := f.service.Register(ctx, auth.RegisterInput{
		Email:     "a@x.com",
		Password:  "Passw0rd!",
		FirstName: "A",
		LastName:  "B",
	})
	require.NoError(t, err)

	user, err := f.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusUnverified, user.Status)
	assert.NotEqual(t, "Passw0rd!", user.PasswordHash)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindEmailVerification, sent[0].kind)
	assert.Equal(t, "a@x.com", sent[0].payload.Email)

	token := sent[0].payload.Token
	recordKey := constants.RedisPrefixVerifyToken + userID
	assert.True(t, f.cache.has(recordKey))

	// 2. Verify
	verifiedID, err := f.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, verifiedID)

	user, err = f.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusVerified, user.Status)
	assert.False(t, f.cache.has(recordKey))

	// 3. Replay
	_, err = f.service.VerifyEmail(ctx, token)
	assert.NoError(t, err)
	assert.Len(t, f.notifier.all(), 1)
}

/*
TestService_RegisterEmailTaken covers the lookup path and the insert race.
*/
func TestService_RegisterEmailTaken(t *testing.T) {
	ctx := context.Background()
	input := auth.RegisterInput{Email: "a@x.com", Password: "Passw0rd!", FirstName: "A", LastName: "B"}

	t.Run("existing_account", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

		_, err := f.service.Register(ctx, input)
		assert.ErrorIs(t, err, apperr.ErrEmailTaken)
		assert.Empty(t, f.notifier.all())
	})

	t.Run("concurrent_insert", func(t *testing.T) {
		f := newFixture(t)
		f.users.createErr = apperr.Conflict("Resource already exists")

		_, err := f.service.Register(ctx, input)
		assert.ErrorIs(t, err, apperr.ErrEmailTaken)
	})
}

/*
TestService_VerifyEmailRejections covers invalid and superseded tokens.
*/
func TestService_VerifyEmailRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, auth.RegisterInput{
		Email: "a@x.com", Password: "Passw0rd!", FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)
	old := f.notifier.last(t, notify.KindEmailVerification)

	_, err = f.service.ResendVerificationEmail(ctx, "a@x.com")
	require.NoError(t, err)
	latest := f.notifier.last(t, notify.KindEmailVerification)
	require.NotEqual(t, old, latest)

	// A reset token is signed with another secret
	resetToken, _, err := f.signer.IssueOneTime(sec.PurposeReset, "user-x")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":       "not-a-token",
		"superseded":    old,
		"wrong_purpose": resetToken,
	} {
		_, err := f.service.VerifyEmail(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, name)
	}

	_, err = f.service.VerifyEmail(ctx, latest)
	assert.NoError(t, err)

	f.clock.Advance(testVerifyTTL + time.Second)
	_, err = f.service.VerifyEmail(ctx, latest)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

/*
TestService_ResendVerificationEmail covers unknown, unverified and verified
accounts.
*/
func TestService_ResendVerificationEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ResendVerificationEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	pending := f.seedUser(t, "pending@x.com", "Passw0rd!", auth.StatusUnverified)
	userID, err := f.service.ResendVerificationEmail(ctx, "pending@x.com")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, userID)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindEmailVerification, sent[0].kind)
	assert.Equal(t, "pending@x.com", sent[0].payload.Email)

	f.seedUser(t, "done@x.com", "Passw0rd!", auth.StatusVerified)
	_, err = f.service.ResendVerificationEmail(ctx, "done@x.com")
	assert.ErrorIs(t, err, apperr.ErrAlreadyVerified)
	assert.Len(t, f.notifier.all(), 1)
}

/*
TestService_ForgotPasswordThrottle allows exactly the configured number of
requests per window and resets once the window lapses.
*/
func TestService_ForgotPasswordThrottle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	for attempt := 1; attempt <= testMaxAttempts; attempt++ {
		userID, err := f.service.ForgotPassword(ctx, "a@x.com")
		require.NoError(t, err, "attempt %d", attempt)
		assert.Equal(t, user.ID, userID)
		f.clock.Advance(time.Minute)
	}

	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrTooManyAttempts)

	// Rejected calls do not push the window forward.
	f.clock.Advance(testWindow - testMaxAttempts*time.Minute)
	_, err = f.service.ForgotPassword(ctx, "a@x.com")
	assert.NoError(t, err)

	assert.Len(t, f.notifier.all(), testMaxAttempts+1)
}

/*
TestService_ForgotPasswordUnknownEmail fails without touching the counter.
*/
func TestService_ForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ForgotPassword(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	assert.Empty(t, f.notifier.all())
}

/*
TestService_ResetPassword covers supersession, single use and the
confirmation notice.

Steps:
 1. Two requests issue T1 then T2; T1 is refused by both checks.
 2. T2 verifies and resets the password.
 3. T2 cannot be used again and the new password signs in.
*/
func TestService_ResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	// 1. Supersession
	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	first := f.notifier.last(t, notify.KindPasswordReset)

	_, err = f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	second := f.notifier.last(t, notify.KindPasswordReset)
	require.NotEqual(t, first, second)

	_, err = f.service.VerifyForgotPassword(ctx, first)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.service.ResetPassword(ctx, first, "NewPassw0rd")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// 2. Apply
	userID, err := f.service.VerifyForgotPassword(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	userID, err = f.service.ResetPassword(ctx, second, "NewPassw0rd")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	sent := f.notifier.all()
	last := sent[len(sent)-1]
	assert.Equal(t, notify.KindPasswordChanged, last.kind)
	assert.Equal(t, notify.Payload{Email: "a@x.com"}, last.payload)

	// 3. Single use
	_, err = f.service.ResetPassword(ctx, second, "Another000")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.service.SignIn(ctx, "a@x.com", "NewPassw0rd")
	assert.NoError(t, err)
	_, err = f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

/*
TestService_ResetPasswordConcurrent lets exactly one of several concurrent
resets with the same token succeed.
*/
func TestService_ResetPasswordConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	token := f.notifier.last(t, notify.KindPasswordReset)

	const callers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ResetPassword(ctx, token, "NewPassw0rd")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	changed := 0
	for _, sent := range f.notifier.all() {
		if sent.kind == notify.KindPasswordChanged {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
}

/*
TestService_ResetPasswordConsumeFailure leaves the password untouched when the
token record cannot be claimed.
*/
func TestService_ResetPasswordConsumeFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	token := f.notifier.last(t, notify.KindPasswordReset)

	f.cache.deleteErr = errCacheDown

	_, err = f.service.ResetPassword(ctx, token, "NewPassw0rd")
	assert.ErrorIs(t, err, errCacheDown)

	_, err = f.service.SignIn(ctx, "a@x.com", "Passw0rd!")
	assert.NoError(t, err)
}

/*
TestService_ResetTokenExpiry refuses a reset token after its lifetime even
though nothing superseded it.
*/
func TestService_ResetTokenExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	token := f.notifier.last(t, notify.KindPasswordReset)

	f.clock.Advance(testResetTTL)

	_, err = f.service.VerifyForgotPassword(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

/*
TestService_ResetCheckFailsClosed refuses a reset token when the token record
cannot be read.
*/
func TestService_ResetCheckFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "Passw0rd!", auth.StatusVerified)

	_, err := f.service.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	token := f.notifier.last(t, notify.KindPasswordReset)

	f.cache.getErr = errCacheDown

	_, err = f.service.VerifyForgotPassword(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
