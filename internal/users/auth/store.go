// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/accounts/internal/notify"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or database failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given (normalized) email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or database failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: dberr.ErrDuplicate when the email is taken, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: dberr.ErrNotFound or persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		MarkVerified moves the account to VERIFIED. Calling it on an account
		that is already verified is not an error.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: dberr.ErrNotFound or persistence failures
	*/
	MarkVerified(context context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for login sessions.
type SessionRepository interface {

	// Create persists a new session.
	Create(context context.Context, session *Session) error

	// FindByID returns the session or dberr.ErrNotFound.
	FindByID(context context.Context, id string) (*Session, error)

	/*
		RotateHash replaces the session hash only if it still equals expected.

		Two callers presenting the same prior hash can never both succeed: the
		loser receives apperr.ErrConflict.

		Parameters:
		  - context: context.Context
		  - id: string
		  - expected: string (The hash the caller observed)
		  - next: string (The replacement hash)

		Returns:
		  - error: apperr.ErrConflict when the hash moved or the row is gone
	*/
	RotateHash(context context.Context, id, expected, next string) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(context context.Context, id string) error
}

// # Volatile Data Access

// Cache is the shared TTL key-value store behind the session blacklist,
// one-time token records and attempt counters. Keys are namespaced by the
// caller.
type Cache interface {

	// Set stores value under key for ttl.
	Set(context context.Context, key, value string, ttl time.Duration) error

	// Get returns the value and whether it was present.
	Get(context context.Context, key string) (string, bool, error)

	// Delete removes key. Missing keys are not an error.
	Delete(context context.Context, key string) error

	// DeleteIfEqual atomically removes key only while it still holds value and
	// reports whether it did. Of several concurrent callers at most one wins.
	DeleteIfEqual(context context.Context, key, value string) (bool, error)

	/*
		IncrementOrInit atomically increments the counter at key and returns the
		new count. The window starts with the first increment and is never
		extended by later ones.

		Parameters:
		  - context: context.Context
		  - key: string
		  - window: time.Duration

		Returns:
		  - int64: Count after the increment
		  - error: Cache failures
	*/
	IncrementOrInit(context context.Context, key string, window time.Duration) (int64, error)
}

// # Side Effects

// Notifier hands a notification off for asynchronous delivery. It never
// blocks on delivery and reports no outcome. [*notify.Dispatcher] implements it.
type Notifier interface {
	Enqueue(ctx context.Context, kind notify.Kind, payload notify.Payload)
}
