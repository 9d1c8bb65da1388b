// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertMessage appends a message to a session owned by ownerID and publishes
// an insert event to that session's subscribers. Roles outside the closed set
// are rejected before touching the database.
func (s *Store) InsertMessage(ownerID, sessionID string, role Role, text string) (*Message, error) {
	if !role.Valid() {
		return nil, &StoreError{Op: "insert message", Err: fmt.Errorf("invalid role %q", role)}
	}

	// Ownership check: the session must belong to the requesting identity.
	if _, err := s.Session(ownerID, sessionID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO messages (id, chat_id, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, sessionID, string(role), text, now.UnixNano(),
	)
	if err != nil {
		return nil, &StoreError{Op: "insert message", Err: err}
	}

	s.notifier.publish(scope{table: "messages", sessionID: sessionID},
		Event{Type: EventInsert, Message: msg})
	return msg, nil
}

// Messages returns all messages of a session owned by ownerID, oldest first.
// For a deleted (or foreign) session the result is empty, not an error: the
// cascade has already removed the rows.
func (s *Store) Messages(ownerID, sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.chat_id, m.role, m.text, m.created_at
		 FROM messages m
		 JOIN chats c ON c.id = m.chat_id
		 WHERE m.chat_id = ? AND c.owner_id = ?
		 ORDER BY m.created_at ASC, m.rowid ASC`, sessionID, ownerID,
	)
	if err != nil {
		return nil, &StoreError{Op: "messages", Err: err}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Text, &createdAt); err != nil {
			return nil, &StoreError{Op: "messages", Err: err}
		}
		m.Role = Role(role)
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "messages", Err: err}
	}
	return messages, nil
}
