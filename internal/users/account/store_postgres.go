// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/accounts/internal/platform/database/schema"
	"github.com/taibuivan/accounts/internal/platform/dberr"
	"github.com/taibuivan/accounts/internal/users/auth"
)

// PostgresAccountRepository implements [AccountRepository].
//
// Reads reuse the auth user repository so both packages scan rows the same way.
type PostgresAccountRepository struct {
	*auth.PostgresUserRepository
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		PostgresUserRepository: auth.NewUserRepository(pool),
		pool:                   pool,
	}
}

// UpdateName replaces the first and last name and bumps the audit timestamp.
func (repository *PostgresAccountRepository) UpdateName(context context.Context, userID, firstName, lastName string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.FirstName, schema.UserAccount.LastName, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := repository.pool.Exec(context, query, userID, firstName, lastName)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_update_name_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
