// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuid generates the time-ordered identifiers used as primary keys
// for accounts and sessions.
//
// Version 7 values sort by creation time, which keeps PostgreSQL B-tree
// inserts append-only.
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	// Convert the UUID to a string
	return id.String()
}
