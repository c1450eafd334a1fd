// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the account identity and session lifecycle layer.

It defines the core domain entities (User, Session), the storage contracts
they depend on, and the service that issues, rotates and revokes tokens.

# Architecture

A session row is the only authority behind a refresh token: the token carries
the session ID and a snapshot of the session's rotating hash, and it is valid
only while the stored hash still matches. Access tokens are stateless and are
revoked early through a blacklist entry in the shared cache.
*/
package auth

import (
	"time"

	"github.com/taibuivan/accounts/internal/platform/sec"
)

// # Domain Entities

// Status is the email verification state of an account.
type Status string

const (
	StatusUnverified Status = "UNVERIFIED"
	StatusVerified   Status = "VERIFIED"
)

// User represents a registered account.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Role         sec.UserRole `json:"role"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// IsVerified reports whether the account has confirmed its email.
func (user *User) IsVerified() bool {
	return user.Status == StatusVerified
}

// Session represents one authenticated login.
//
// Hash is regenerated on sign-in and on every refresh.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Hash      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// # Field Identifiers

// Field names used in validation errors and JSON payloads.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldToken        = "token"
	FieldRefreshToken = "refreshToken"
)
