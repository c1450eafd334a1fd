// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account lets an authenticated user read and edit their own profile.

# Architecture

  - Domain: This package depends on the auth package for the User entity.
  - Security: Every endpoint is behind RequireAuth; the subject is always
    the userId of the caller's access token, never a path parameter.
*/
package account

import (
	"context"

	"github.com/taibuivan/accounts/internal/users/auth"
)

// # Repository Contracts

// AccountRepository defines the persistence contract for profile data.
type AccountRepository interface {
	// FindByID retrieves a user record by their unique ID.
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		UpdateName replaces the display names of a user.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - firstName, lastName: string (already validated)

		Returns:
		  - error: dberr.ErrNotFound or database errors
	*/
	UpdateName(context context.Context, userID, firstName, lastName string) error
}

// UpdateProfileInput defines the mutable subset of user profile fields.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}
