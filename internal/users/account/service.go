// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/users/auth"
	"github.com/taibuivan/accounts/pkg/pointer"
)

// # Service Layer

// Service reads and edits the profile of the calling user.
type Service struct {
	accountRepository AccountRepository
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(accountRepo AccountRepository) *Service {
	return &Service{accountRepository: accountRepo}
}

/*
GetProfile retrieves the private profile of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: UserNotFound when the account was removed after the token was issued
*/
func (service *Service) GetProfile(context context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

/*
UpdateProfile applies a partial set of changes to a user's names.

Description: Fetches the existing user state, overrides provided fields, and
synchronizes the change to persistent storage.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *auth.User: The updated profile
  - error: UserNotFound or persistence failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.GetProfile(context, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = pointer.Fallback(input.FirstName, user.FirstName)
	user.LastName = pointer.Fallback(input.LastName, user.LastName)

	if err := service.accountRepository.UpdateName(context, userID, user.FirstName, user.LastName); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_profile_updated", slog.String("user_id", userID))
	return user, nil
}
