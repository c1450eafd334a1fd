// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package email canonicalizes user-supplied email addresses.
//
// # Usage
//
// Every email is normalized at the HTTP boundary before it reaches the
// service layer, so that lookups and the unique index on users.account.email
// see one spelling per mailbox.
package email

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// lower is safe for concurrent use once constructed.
var lower = cases.Lower(language.Und)

// Normalize converts an address into its canonical form.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFC so that composed and decomposed forms compare equal.
// 3. Strips zero-width and other format characters.
// 4. Lower-cases using Unicode rules.
func Normalize(address string) string {

	// 1. Trim
	address = strings.TrimSpace(address)

	// 2-3. Compose and drop invisible format runes
	chain := transform.Chain(norm.NFC, transform.RemoveFunc(isFormat))
	result, _, err := transform.String(chain, address)
	if err != nil {
		result = address
	}

	// 4. Lowercase
	return lower.String(result)
}

// isFormat reports whether r is a Unicode format character (e.g. U+200B).
func isFormat(r rune) bool {
	return unicode.Is(unicode.Cf, r)
}
