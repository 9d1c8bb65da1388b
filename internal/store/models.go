// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"time"

	"github.com/jeranaias/nexus-tui/internal/document"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a message. It is a closed set: the store
// rejects anything but RoleUser and RoleModel so invalid roles can neither be
// persisted nor rendered.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleModel marks a message produced by (or on behalf of) the model,
	// including persisted error turns.
	RoleModel Role = "model"
)

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// =============================================================================
// ROWS
// =============================================================================

// Profile is the persisted identity row.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Session is a chat session row. Doc is nil for ungrounded sessions and
// immutable for the session's lifetime otherwise.
type Session struct {
	ID        string
	OwnerID   string
	Title     string
	Doc       *document.Context
	CreatedAt time.Time
}

// Message is a single chat message row, ordered within its session by
// CreatedAt ascending.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Text      string
	CreatedAt time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

// StoreError wraps any failed store operation.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}
