// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/accounts/internal/platform/constants"
)

// # Input Constraints

const (
	// NameMaxLength bounds first and last names.
	NameMaxLength = 100

	// EmailMaxLength matches the column width of users.account.email.
	EmailMaxLength = 254
)

// # Defaults

const (
	// DefaultResetMaxAttempts is used when [ServiceConfig.ResetMaxAttempts] is unset.
	DefaultResetMaxAttempts = 5

	// DefaultResetAttemptWindow is used when [ServiceConfig.ResetAttemptWindow] is unset.
	DefaultResetAttemptWindow = 24 * time.Hour
)

// # Cache Keys

func blacklistKey(sessionID string) string { return constants.RedisPrefixBlacklist + sessionID }

func resetTokenKey(userID string) string { return constants.RedisPrefixResetToken + userID }

func resetAttemptsKey(userID string) string { return constants.RedisPrefixResetAttempts + userID }

func verifyTokenKey(userID string) string { return constants.RedisPrefixVerifyToken + userID }

// # Metric Labels

const (
	opSignIn         = "sign_in"
	opRegister       = "register"
	opLogout         = "logout"
	opRefresh        = "refresh"
	opVerifyAccess   = "verify_access"
	opForgotPassword = "forgot_password"
	opVerifyForgot   = "verify_forgot_password"
	opResetPassword  = "reset_password"
	opVerifyEmail    = "verify_email"
	opResendVerify   = "resend_verification"

	outcomeOK = "ok"
)
