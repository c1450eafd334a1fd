// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/respond"
	"github.com/taibuivan/accounts/internal/platform/sec"
)

// TokenVerifier verifies a bearer access token, including the revocation check.
//
// The session service satisfies it; tests pass a stub.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*sec.AccessClaims, error)
}

// Authenticate extracts and verifies the access token from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, malformed or rejected, the request proceeds as anonymous.
//  3. Otherwise verify the token via [TokenVerifier] (signature, expiry, blacklist).
//  4. Inject [*sec.AccessClaims] into the request context for downstream use.
//
// Rejection is left to [RequireAuth], so public routes such as /auth/refresh
// stay reachable with a stale access token still attached.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			scheme, token, found := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !found || !strings.EqualFold(scheme, constants.AuthorizationScheme) || token == "" {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "auth_header_malformed")
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyAccessToken(request.Context(), token)
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "auth_token_rejected", slog.Any("error", err))
				next.ServeHTTP(writer, request)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAccessClaims(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAccessClaims(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
