// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/database/schema"
	"github.com/taibuivan/accounts/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] on the users.account table.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Initializes audit timestamps when the caller left them empty.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: dberr.ErrDuplicate on an email collision, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.UserAccount.Table, schema.UserAccount.ColumnList(),
	)

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return dberr.Wrap(err, "postgres_user_repo_create_failed")
}

// FindByID retrieves a user record by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.UserAccount.ColumnList(), schema.UserAccount.Table, schema.UserAccount.ID,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string (Already normalized by the caller)

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.UserAccount.ColumnList(), schema.UserAccount.Table, schema.UserAccount.Email,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := repository.pool.Exec(context, query, userID, newHash)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_update_password_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

/*
MarkVerified transitions an account to VERIFIED.

Description: The update is guarded so the audit timestamp only moves on the
first transition. When no row changes, the account is looked up to tell an
already verified account (success) from a missing one.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NOW()
		WHERE %s = $1 AND %s <> $2`,
		schema.UserAccount.Table,
		schema.UserAccount.Status, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.Status,
	)

	tag, err := repository.pool.Exec(context, query, userID, StatusVerified)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_mark_verified_failed")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	exists := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.UserAccount.Table, schema.UserAccount.ID,
	)

	var found bool
	if err := repository.pool.QueryRow(context, exists, userID).Scan(&found); err != nil {
		return dberr.Wrap(err, "postgres_user_repo_mark_verified_failed")
	}
	if !found {
		return dberr.ErrNotFound
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] on the users.session table.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// Create persists a new session row.
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5)`,
		schema.UserSession.Table, schema.UserSession.ColumnList(),
	)

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.Hash,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return dberr.Wrap(err, "postgres_session_repo_create_failed")
}

// FindByID retrieves a session by primary key.
func (repository *PostgresSessionRepository) FindByID(context context.Context, id string) (*Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.UserSession.ColumnList(), schema.UserSession.Table, schema.UserSession.ID,
	)

	session := &Session{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Hash,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_repo_find_by_id_failed")
	}
	return session, nil
}

/*
RotateHash swaps the session hash with a compare-and-set update.

Description: The WHERE clause pins the expected prior hash, so PostgreSQL's
row lock serializes concurrent rotations and only the first one matches.

Parameters:
  - context: context.Context
  - id: string
  - expected: string
  - next: string

Returns:
  - error: apperr.ErrConflict when zero rows matched
*/
func (repository *PostgresSessionRepository) RotateHash(context context.Context, id, expected, next string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = NOW()
		WHERE %s = $1 AND %s = $2`,
		schema.UserSession.Table,
		schema.UserSession.Hash, schema.UserSession.UpdatedAt,
		schema.UserSession.ID, schema.UserSession.Hash,
	)

	tag, err := repository.pool.Exec(context, query, id, expected, next)
	if err != nil {
		return dberr.Wrap(err, "postgres_session_repo_rotate_hash_failed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrConflict
	}
	return nil
}

// Delete removes a session row. Missing rows are ignored.
func (repository *PostgresSessionRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserSession.Table, schema.UserSession.ID)

	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err, "postgres_session_repo_delete_failed")
}
