// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the accounts database so
// that queries never spell identifiers inline.
package schema

import "strings"

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table     string
	ID        string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Status    string
	CreatedAt string
	UpdatedAt string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:     "users.account",
	ID:        "id",
	Email:     "email",
	Password:  "passwordhash",
	FirstName: "firstname",
	LastName:  "lastname",
	Role:      "role",
	Status:    "status",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names, in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.FirstName, t.LastName,
		t.Role, t.Status, t.CreatedAt, t.UpdatedAt,
	}
}

// ColumnList returns [UserAccountTable.Columns] joined for a SELECT or INSERT list.
func (t UserAccountTable) ColumnList() string {
	return strings.Join(t.Columns(), ", ")
}
