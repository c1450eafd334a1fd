// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/accounts/internal/notify"
	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/platform/metrics"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/pkg/uuid"
)

// # Contracts & Types

// PasswordHasher is the one-way credential boundary. [*sec.Hasher] implements it.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool

	// VerifyDummy spends the same work as Verify against a fixed digest and
	// always reports false.
	VerifyDummy(plain string) bool
}

// TokenPair is returned by sign-in and refresh.
//
// TokenExpires is the absolute access token expiry in Unix milliseconds.
type TokenPair struct {
	UserID       string `json:"userId,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenExpires int64  `json:"tokenExpires"`
}

// ServiceConfig carries the throttle policy and optional collaborators.
type ServiceConfig struct {
	// ResetMaxAttempts is how many password reset requests a user may make
	// per window.
	ResetMaxAttempts int

	// ResetAttemptWindow starts at the first request and is never extended.
	ResetAttemptWindow time.Duration

	Now     func() time.Time
	Metrics *metrics.Registry
}

// Service implements the session and token lifecycle.
//
// # Review Process
//
// This service is critical for security. Any change to token issuance,
// rotation or revocation must be reviewed together with its tests.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	cache             Cache
	notifier          Notifier
	signer            *sec.Signer
	hasher            PasswordHasher

	resetMaxAttempts   int64
	resetAttemptWindow time.Duration
	now                func() time.Time
	metrics            *metrics.Registry
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	cache Cache,
	notifier Notifier,
	signer *sec.Signer,
	hasher PasswordHasher,
	config ServiceConfig,
) *Service {
	if config.ResetMaxAttempts < 1 {
		config.ResetMaxAttempts = DefaultResetMaxAttempts
	}
	if config.ResetAttemptWindow <= 0 {
		config.ResetAttemptWindow = DefaultResetAttemptWindow
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{
		userRepository:     userRepo,
		sessionRepository:  sessionRepo,
		cache:              cache,
		notifier:           notifier,
		signer:             signer,
		hasher:             hasher,
		resetMaxAttempts:   int64(config.ResetMaxAttempts),
		resetAttemptWindow: config.ResetAttemptWindow,
		now:                config.Now,
		metrics:            config.Metrics,
	}
}

// # Authentication Flow

/*
SignIn validates credentials and opens a new session.

Description: An unknown email still pays for one bcrypt comparison so both
failure paths take the same time and render the same message.

Parameters:
  - context: context.Context
  - email: string (Normalized)
  - password: string

Returns:
  - *TokenPair: Access and refresh tokens bound to the new session
  - err: InvalidCredentials, Unauthorized or internal failures
*/
func (service *Service) SignIn(context context.Context, email, password string) (pair *TokenPair, err error) {
	defer func() { service.observe(opSignIn, err) }()

	user, err := service.userRepository.FindByEmail(context, email)
	if errors.Is(err, dberr.ErrNotFound) {
		service.hasher.VerifyDummy(password)
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_signin_lookup_failed: %w", err)
	}

	if !service.hasher.Verify(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	hash, err := sec.NewSessionHash()
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_hash_failed: %w", err)
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Hash:      hash,
		CreatedAt: service.now().UTC(),
	}
	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	pair, err = service.issuePair(user, session.ID, hash)
	if err != nil {
		return nil, err
	}
	pair.UserID = user.ID

	ctxutil.GetLogger(context).InfoContext(context, "auth_signin_succeeded",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)
	return pair, nil
}

/*
Logout revokes the session behind an access token.

Description: The session ID is blacklisted for as long as the signer would
still accept the access token (expiry plus clock skew), then the session row is deleted so its refresh token dies too.
Both steps tolerate repetition.

Parameters:
  - context: context.Context
  - claims: *sec.AccessClaims (From the authenticated request)

Returns:
  - err: Cache or storage failures
*/
func (service *Service) Logout(context context.Context, claims *sec.AccessClaims) (err error) {
	defer func() { service.observe(opLogout, err) }()

	if claims == nil || claims.ExpiresAt == nil {
		return apperr.Unauthorized("Authentication required")
	}

	// The entry must outlive the token's skew-tolerant acceptance window.
	remaining := service.signer.AcceptedUntil(claims.ExpiresAt.Time).Sub(service.now())
	if remaining > 0 {
		if err := service.cache.Set(context, blacklistKey(claims.SessionID), "true", remaining); err != nil {
			return fmt.Errorf("auth_service_blacklist_failed: %w", err)
		}
	}

	if err := service.sessionRepository.Delete(context, claims.SessionID); err != nil {
		return fmt.Errorf("auth_service_session_delete_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_logout_succeeded",
		slog.String("user_id", claims.UserID),
		slog.String("session_id", claims.SessionID),
	)
	return nil
}

/*
RefreshToken rotates a session and issues a fresh token pair.

Description: The presented token must point at an existing session whose hash
still equals the one embedded in the token. Rotation is a compare-and-set on
that hash, so a replayed or concurrently reused token loses.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New pair bound to the rotated hash
  - err: Unauthorized or internal failures
*/
func (service *Service) RefreshToken(context context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { service.observe(opRefresh, err) }()

	claims, err := service.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	session, err := service.sessionRepository.FindByID(context, claims.SessionID)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil, apperr.Unauthorized("Session has been revoked")
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_lookup_failed: %w", err)
	}

	if !equalSecret(session.Hash, claims.Hash) {
		ctxutil.GetLogger(context).WarnContext(context, "auth_refresh_stale_token",
			slog.String("session_id", session.ID),
		)
		return nil, apperr.Unauthorized("Refresh token has been rotated")
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if errors.Is(err, dberr.ErrNotFound) {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_refresh_orphan_session",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		return nil, apperr.Unauthorized("Session has been revoked")
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_user_lookup_failed: %w", err)
	}

	next, err := sec.NewSessionHash()
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_hash_failed: %w", err)
	}

	if err := service.sessionRepository.RotateHash(context, session.ID, claims.Hash, next); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Unauthorized("Refresh token has been rotated")
		}
		return nil, fmt.Errorf("auth_service_rotate_failed: %w", err)
	}

	return service.issuePair(user, session.ID, next)
}

/*
VerifyAccessToken authenticates a bearer token for a request.

Description: A token whose session is blacklisted is rejected even though its
signature and expiry are valid. A cache failure is treated as revoked.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *sec.AccessClaims: Decoded payload
  - err: Unauthorized
*/
func (service *Service) VerifyAccessToken(context context.Context, token string) (claims *sec.AccessClaims, err error) {
	defer func() { service.observe(opVerifyAccess, err) }()

	claims, err = service.signer.VerifyAccess(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired access token")
	}

	_, revoked, err := service.cache.Get(context, blacklistKey(claims.SessionID))
	if err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_blacklist_check_failed",
			slog.String("session_id", claims.SessionID),
			slog.Any("error", err),
		)
		return nil, apperr.Unauthorized("Invalid or expired access token")
	}
	if revoked {
		return nil, apperr.Unauthorized("Session has been revoked")
	}

	return claims, nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

/*
Register creates an unverified account and sends the verification email.

Parameters:
  - context: context.Context
  - input: RegisterInput (Email already normalized)

Returns:
  - string: ID of the new account
  - err: EmailTaken or internal failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (userID string, err error) {
	defer func() { service.observe(opRegister, err) }()

	_, err = service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return "", apperr.EmailTaken()
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return "", fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return "", fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.RoleMember,
		Status:       StatusUnverified,
		CreatedAt:    service.now().UTC(),
	}

	// A concurrent registration may win between the lookup and the insert.
	if err := service.userRepository.Create(context, user); err != nil {
		if errors.Is(err, dberr.ErrDuplicate) {
			return "", apperr.EmailTaken()
		}
		return "", fmt.Errorf("auth_service_register_failed: %w", err)
	}

	if err := service.issueOneTime(context, user, sec.PurposeVerify, notify.KindEmailVerification); err != nil {
		return "", err
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_register_succeeded", slog.String("user_id", user.ID))
	return user.ID, nil
}

/*
VerifyEmail confirms an account with a verification token.

Description: Applying the latest token twice succeeds both times. A token
superseded by a newer verification email is rejected while the newer
record is still pending.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: ID of the verified account
  - err: Unauthorized or internal failures
*/
func (service *Service) VerifyEmail(context context.Context, token string) (userID string, err error) {
	defer func() { service.observe(opVerifyEmail, err) }()

	claims, err := service.signer.VerifyOneTime(sec.PurposeVerify, token)
	if err != nil {
		return "", apperr.Unauthorized("Invalid or expired verification token")
	}

	key := verifyTokenKey(claims.UserID)
	stored, found, err := service.cache.Get(context, key)
	if err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_verify_token_check_failed", slog.Any("error", err))
		return "", apperr.Unauthorized("Invalid or expired verification token")
	}
	if found && !equalSecret(stored, token) {
		return "", apperr.Unauthorized("Invalid or expired verification token")
	}

	if err := service.userRepository.MarkVerified(context, claims.UserID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return "", apperr.Unauthorized("Invalid or expired verification token")
		}
		return "", fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	if found {
		if err := service.cache.Delete(context, key); err != nil {
			return "", fmt.Errorf("auth_service_verify_token_delete_failed: %w", err)
		}
	}

	return claims.UserID, nil
}

/*
ResendVerificationEmail issues a new verification token, superseding the
previous one.

Parameters:
  - context: context.Context
  - email: string (Normalized)

Returns:
  - string: ID of the account
  - err: UserNotFound, AlreadyVerified or internal failures
*/
func (service *Service) ResendVerificationEmail(context context.Context, email string) (userID string, err error) {
	defer func() { service.observe(opResendVerify, err) }()

	user, err := service.findByEmail(context, email)
	if err != nil {
		return "", err
	}

	if user.IsVerified() {
		return "", apperr.AlreadyVerified()
	}

	if err := service.issueOneTime(context, user, sec.PurposeVerify, notify.KindEmailVerification); err != nil {
		return "", err
	}
	return user.ID, nil
}

// # Password Recovery Flow

/*
ForgotPassword sends a password reset link, subject to a per-user budget.

Description: The counter is incremented before the comparison, so exactly
ResetMaxAttempts requests succeed per window and every later request is
refused. The window is anchored at the first request.

Parameters:
  - context: context.Context
  - email: string (Normalized)

Returns:
  - string: ID of the account
  - err: UserNotFound, TooManyAttempts or internal failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) (userID string, err error) {
	defer func() { service.observe(opForgotPassword, err) }()

	user, err := service.findByEmail(context, email)
	if err != nil {
		return "", err
	}

	count, err := service.cache.IncrementOrInit(context, resetAttemptsKey(user.ID), service.resetAttemptWindow)
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_attempts_failed: %w", err)
	}
	if count > service.resetMaxAttempts {
		ctxutil.GetLogger(context).WarnContext(context, "auth_reset_throttled",
			slog.String("user_id", user.ID),
			slog.Int64("attempts", count),
		)
		return "", apperr.TooManyAttempts()
	}

	if err := service.issueOneTime(context, user, sec.PurposeReset, notify.KindPasswordReset); err != nil {
		return "", err
	}
	return user.ID, nil
}

// VerifyForgotPassword reports whether a reset link is still usable.
func (service *Service) VerifyForgotPassword(context context.Context, token string) (userID string, err error) {
	defer func() { service.observe(opVerifyForgot, err) }()

	claims, err := service.checkResetToken(context, token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

/*
ResetPassword consumes a reset token and stores the new password.

Description: The token record is consumed atomically before the password is
written, so of two concurrent requests with the same token only one applies.
If the write then fails the link is spent and a new one must be requested.
The confirmation email is best-effort.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - string: ID of the account
  - err: Unauthorized or internal failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) (userID string, err error) {
	defer func() { service.observe(opResetPassword, err) }()

	claims, err := service.checkResetToken(context, token)
	if err != nil {
		return "", err
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if errors.Is(err, dberr.ErrNotFound) {
		return "", apperr.Unauthorized("Invalid or expired reset token")
	}
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// At most one caller can claim the token.
	consumed, err := service.cache.DeleteIfEqual(context, resetTokenKey(user.ID), token)
	if err != nil {
		return "", fmt.Errorf("auth_service_reset_token_consume_failed: %w", err)
	}
	if !consumed {
		return "", apperr.Unauthorized("Invalid or expired reset token")
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return "", fmt.Errorf("auth_service_update_password_failed: %w", err)
	}

	service.notifier.Enqueue(context, notify.KindPasswordChanged, notify.Payload{Email: user.Email})

	ctxutil.GetLogger(context).InfoContext(context, "auth_password_reset", slog.String("user_id", user.ID))
	return user.ID, nil
}

// # Internals

// issuePair signs an access and refresh token for a session.
func (service *Service) issuePair(user *User, sessionID, hash string) (*TokenPair, error) {
	accessToken, expiresAt, err := service.signer.IssueAccess(user.ID, sessionID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	refreshToken, _, err := service.signer.IssueRefresh(sessionID, hash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpires: expiresAt.UnixMilli(),
	}, nil
}

// issueOneTime signs a reset or verify token, records it as the only
// acceptable one for the user and enqueues the email carrying it.
func (service *Service) issueOneTime(context context.Context, user *User, purpose sec.Purpose, kind notify.Kind) error {
	token, _, err := service.signer.IssueOneTime(purpose, user.ID)
	if err != nil {
		return fmt.Errorf("auth_service_%s_token_failed: %w", purpose, err)
	}

	key := verifyTokenKey(user.ID)
	if purpose == sec.PurposeReset {
		key = resetTokenKey(user.ID)
	}

	if err := service.cache.Set(context, key, token, service.signer.TTL(purpose)); err != nil {
		return fmt.Errorf("auth_service_%s_token_store_failed: %w", purpose, err)
	}

	service.notifier.Enqueue(context, kind, notify.Payload{Email: user.Email, Token: token})
	return nil
}

// checkResetToken accepts only the reset token most recently issued for its user.
func (service *Service) checkResetToken(context context.Context, token string) (*sec.OneTimeClaims, error) {
	claims, err := service.signer.VerifyOneTime(sec.PurposeReset, token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired reset token")
	}

	stored, found, err := service.cache.Get(context, resetTokenKey(claims.UserID))
	if err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "auth_reset_token_check_failed", slog.Any("error", err))
		return nil, apperr.Unauthorized("Invalid or expired reset token")
	}
	if !found || !equalSecret(stored, token) {
		return nil, apperr.Unauthorized("Invalid or expired reset token")
	}

	return claims, nil
}

func (service *Service) findByEmail(context context.Context, email string) (*User, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil, apperr.UserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_user_lookup_failed: %w", err)
	}
	return user, nil
}

// observe counts an operation outcome by error code.
func (service *Service) observe(operation string, err error) {
	if err == nil {
		service.metrics.AuthEvent(operation, outcomeOK)
		return
	}
	if appErr := apperr.As(err); appErr != nil {
		service.metrics.AuthEvent(operation, appErr.Code)
		return
	}
	service.metrics.AuthEvent(operation, apperr.CodeInternal)
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
