// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// Every account currently holds [RoleMember]; the claim is carried in access
// tokens so that downstream services can read it once roles exist.
type UserRole string

const (
	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleMember
}
