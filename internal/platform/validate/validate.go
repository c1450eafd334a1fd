// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Handlers run the chain on decoded request bodies; storage never validates.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/accounts/internal/platform/apperr"
)

// # Password Policy

const (
	// PasswordMinLen is the minimum number of characters in a password.
	PasswordMinLen = 6
	// PasswordMaxLen caps input at bcrypt's 72-byte limit.
	PasswordMaxLen = 72
)

var (
	// passwordRegex restricts passwords to ASCII letters, digits and a small
	// symbol set.
	passwordRegex = regexp.MustCompile(`^[\d!#$%&*@A-Z^a-z]*$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Email fails if the value is not a valid RFC 5322 email address.
func (v *Validator) Email(field, value string) *Validator {
	// ParseAddress also accepts display-name forms such as "Jane <j@x.io>".
	if address, err := mail.ParseAddress(value); err != nil || address.Address != value {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Password fails if the value breaks the password policy.
//
// # Rules
//
// Between [PasswordMinLen] and [PasswordMaxLen] characters, made only of
// letters, digits and the symbols ! # $ % & * @ ^.
func (v *Validator) Password(field, value string) *Validator {
	switch {
	case utf8.RuneCountInString(value) < PasswordMinLen:
		v.add(field, fmt.Sprintf("Minimum %d characters", PasswordMinLen))
	case len(value) > PasswordMaxLen:
		v.add(field, fmt.Sprintf("Maximum %d characters", PasswordMaxLen))
	case !passwordRegex.MatchString(value):
		v.add(field, "Only letters, digits and !#$%&*@^ are allowed")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("token", token == "", "Token is required")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// RequiredError is a shortcut to create a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}
