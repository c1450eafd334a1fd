// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. The [Signer] issues and verifies the four token kinds of
// the account service, each under its own HMAC secret and lifetime.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every verification failure: bad signature,
// expiry, malformed input, wrong purpose or missing claims.
var ErrInvalidToken = errors.New("sec: invalid token")

// # Purposes

// Purpose names a token kind. Each purpose is signed with a distinct secret
// and carries its name in the audience claim.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeReset   Purpose = "reset"
	PurposeVerify  Purpose = "verify"
)

// # Claims

// AccessClaims represents the payload embedded inside an access token.
//
// The middleware rebuilds the caller identity from these fields without a
// database round-trip; revocation is handled by the blacklist.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID    string   `json:"userId"`
	SessionID string   `json:"sessionId"`
	Role      UserRole `json:"role"`
}

// RefreshClaims is the payload of a refresh token. Hash must match the
// session row for the token to be accepted.
type RefreshClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sessionId"`
	Hash      string `json:"hash"`
}

// OneTimeClaims is the payload shared by password reset and email
// verification tokens.
type OneTimeClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"userId"`
}

// # Signer

// SigningKey pairs a secret with the lifetime of tokens signed by it.
type SigningKey struct {
	Secret []byte
	TTL    time.Duration
}

// SignerConfig configures a [Signer].
type SignerConfig struct {
	Issuer    string
	ClockSkew time.Duration

	Access  SigningKey
	Refresh SigningKey
	Reset   SigningKey
	Verify  SigningKey

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Signer handles generation and verification of HS256 tokens.
//
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	issuer string
	leeway time.Duration
	keys   map[Purpose]SigningKey
	now    func() time.Time
}

// NewSigner validates cfg and returns a ready [Signer].
func NewSigner(cfg SignerConfig) (*Signer, error) {
	keys := map[Purpose]SigningKey{
		PurposeAccess:  cfg.Access,
		PurposeRefresh: cfg.Refresh,
		PurposeReset:   cfg.Reset,
		PurposeVerify:  cfg.Verify,
	}

	for purpose, key := range keys {
		if len(key.Secret) == 0 {
			return nil, fmt.Errorf("sec: %s secret is empty", purpose)
		}
		if key.TTL <= 0 {
			return nil, fmt.Errorf("sec: %s ttl must be positive", purpose)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Signer{
		issuer: cfg.Issuer,
		leeway: cfg.ClockSkew,
		keys:   keys,
		now:    now,
	}, nil
}

// TTL returns the configured lifetime of tokens for purpose.
func (signer *Signer) TTL(purpose Purpose) time.Duration {
	return signer.keys[purpose].TTL
}

// AcceptedUntil returns the instant from which a token expiring at expiresAt
// stops verifying, clock skew included.
func (signer *Signer) AcceptedUntil(expiresAt time.Time) time.Time {
	return expiresAt.Add(signer.leeway)
}

// IssueAccess signs an access token for a session.
//
// Returns the token and its absolute expiry.
func (signer *Signer) IssueAccess(userID, sessionID string, role UserRole) (string, time.Time, error) {
	registered, expiresAt := signer.registered(PurposeAccess, userID)
	claims := AccessClaims{
		RegisteredClaims: registered,
		UserID:           userID,
		SessionID:        sessionID,
		Role:             role,
	}
	token, err := signer.sign(PurposeAccess, claims)
	return token, expiresAt, err
}

// IssueRefresh signs a refresh token bound to the session's current hash.
func (signer *Signer) IssueRefresh(sessionID, hash string) (string, time.Time, error) {
	registered, expiresAt := signer.registered(PurposeRefresh, sessionID)
	claims := RefreshClaims{
		RegisteredClaims: registered,
		SessionID:        sessionID,
		Hash:             hash,
	}
	token, err := signer.sign(PurposeRefresh, claims)
	return token, expiresAt, err
}

// IssueOneTime signs a reset or verify token for a user.
func (signer *Signer) IssueOneTime(purpose Purpose, userID string) (string, time.Time, error) {
	if purpose != PurposeReset && purpose != PurposeVerify {
		return "", time.Time{}, fmt.Errorf("sec: %s is not a one-time purpose", purpose)
	}

	registered, expiresAt := signer.registered(purpose, userID)
	claims := OneTimeClaims{
		RegisteredClaims: registered,
		UserID:           userID,
	}
	token, err := signer.sign(purpose, claims)
	return token, expiresAt, err
}

// VerifyAccess parses and validates an access token.
func (signer *Signer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := signer.parse(PurposeAccess, token, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token.
func (signer *Signer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := signer.parse(PurposeRefresh, token, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.Hash == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyOneTime parses and validates a reset or verify token.
func (signer *Signer) VerifyOneTime(purpose Purpose, token string) (*OneTimeClaims, error) {
	if purpose != PurposeReset && purpose != PurposeVerify {
		return nil, ErrInvalidToken
	}

	claims := &OneTimeClaims{}
	if err := signer.parse(purpose, token, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// # Internals

func (signer *Signer) registered(purpose Purpose, subject string) (jwt.RegisteredClaims, time.Time) {
	issuedAt := signer.now()
	expiresAt := issuedAt.Add(signer.keys[purpose].TTL)

	// The unique ID keeps two tokens issued within the same second distinct.
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    signer.issuer,
		Audience:  jwt.ClaimStrings{string(purpose)},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}, expiresAt.Truncate(jwt.TimePrecision)
}

func (signer *Signer) sign(purpose Purpose, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signer.keys[purpose].Secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", purpose, err)
	}
	return signed, nil
}

func (signer *Signer) parse(purpose Purpose, tokenString string, claims jwt.Claims) error {
	if tokenString == "" {
		return ErrInvalidToken
	}

	secret := signer.keys[purpose].Secret
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(purpose)),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(signer.leeway),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
