// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import "strings"

// UserSessionTable represents the 'users.session' table
type UserSessionTable struct {
	Table     string
	ID        string
	UserID    string
	Hash      string
	CreatedAt string
	UpdatedAt string
}

// UserSession is the schema definition for users.session
var UserSession = UserSessionTable{
	Table:     "users.session",
	ID:        "id",
	UserID:    "userid",
	Hash:      "hash",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names, in scan order.
func (t UserSessionTable) Columns() []string {
	return []string{t.ID, t.UserID, t.Hash, t.CreatedAt, t.UpdatedAt}
}

// ColumnList returns [UserSessionTable.Columns] joined for a SELECT or INSERT list.
func (t UserSessionTable) ColumnList() string {
	return strings.Join(t.Columns(), ", ")
}
