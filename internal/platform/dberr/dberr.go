// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/accounts/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")

	// ErrDuplicate is returned when an insert or update hits a unique index.
	ErrDuplicate = apperr.Conflict("Resource already exists")
)

// Wrap inspects a database error and classifies it.
//
// Missing rows map to [ErrNotFound], unique violations to [ErrDuplicate]
// (carrying the constraint name in the cause); anything else becomes an
// internal error annotated with action.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Unique constraint violations
	if constraint, ok := UniqueViolation(err); ok {
		return ErrDuplicate.WithCause(fmt.Errorf("%s: unique constraint %q: %w", action, constraint, err))
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// UniqueViolation reports whether err is a PostgreSQL unique violation
// (SQLSTATE 23505) and returns the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
