// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// Per-request values (access claims, request ID, logger) are stored under an
// unexported key type so that no other package can read or overwrite them.
package ctxkey

// key is an unexported type used for context keys.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyClaims is the context key for the verified [*sec.AccessClaims].
	KeyClaims key = "access_claims"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"
)
