// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/nexus-tui/internal/document"
)

// CreateSession inserts a new chat session for ownerID and publishes an
// insert event to session subscribers. The document context, when present,
// is stored with the session and never changes afterwards.
func (s *Store) CreateSession(ownerID, title string, doc *document.Context) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Doc:       doc,
		CreatedAt: now,
	}

	var docKind, docName, docMime, docPayload sql.NullString
	if doc != nil {
		docKind = sql.NullString{String: doc.Kind.String(), Valid: true}
		docName = sql.NullString{String: doc.Name, Valid: true}
		docMime = sql.NullString{String: doc.MIMEType, Valid: true}
		docPayload = sql.NullString{String: doc.Payload, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO chats (id, owner_id, title, doc_kind, doc_name, doc_mime, doc_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, ownerID, title, docKind, docName, docMime, docPayload, now.UnixNano(),
	)
	if err != nil {
		return nil, &StoreError{Op: "create session", Err: err}
	}

	s.notifier.publish(scope{table: "chats", ownerID: ownerID},
		Event{Type: EventInsert, Session: sess})
	return sess, nil
}

// Sessions returns all sessions belonging to ownerID, most recent first.
func (s *Store) Sessions(ownerID string) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, doc_kind, doc_name, doc_mime, doc_payload, created_at
		 FROM chats WHERE owner_id = ?
		 ORDER BY created_at DESC, rowid DESC`, ownerID,
	)
	if err != nil {
		return nil, &StoreError{Op: "sessions", Err: err}
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, &StoreError{Op: "sessions", Err: err}
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "sessions", Err: err}
	}
	return sessions, nil
}

// Session loads one session by id, scoped to ownerID.
func (s *Store) Session(ownerID, id string) (*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, doc_kind, doc_name, doc_mime, doc_payload, created_at
		 FROM chats WHERE owner_id = ? AND id = ?`, ownerID, id,
	)
	if err != nil {
		return nil, &StoreError{Op: "session", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &StoreError{Op: "session", Err: err}
		}
		return nil, &StoreError{Op: "session", Err: ErrNotFound}
	}
	sess, err := scanSession(rows)
	if err != nil {
		return nil, &StoreError{Op: "session", Err: err}
	}
	return sess, nil
}

// DeleteSession removes a session and, through the schema's cascade, all of
// its messages. Scoped to ownerID; deleting someone else's session is
// ErrNotFound.
func (s *Store) DeleteSession(ownerID, id string) error {
	res, err := s.db.Exec(
		`DELETE FROM chats WHERE owner_id = ? AND id = ?`, ownerID, id,
	)
	if err != nil {
		return &StoreError{Op: "delete session", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &StoreError{Op: "delete session", Err: ErrNotFound}
	}

	s.notifier.publish(scope{table: "chats", ownerID: ownerID},
		Event{Type: EventDelete, Session: &Session{ID: id, OwnerID: ownerID}})
	return nil
}

// scanSession reads one session row.
func scanSession(rows *sql.Rows) (*Session, error) {
	var sess Session
	var docKind, docName, docMime, docPayload sql.NullString
	var createdAt int64

	if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Title,
		&docKind, &docName, &docMime, &docPayload, &createdAt); err != nil {
		return nil, err
	}
	sess.CreatedAt = time.Unix(0, createdAt).UTC()

	if docKind.Valid {
		sess.Doc = &document.Context{
			Kind:     document.ParseKind(docKind.String),
			Name:     docName.String,
			MIMEType: docMime.String,
			Payload:  docPayload.String,
		}
	}
	return &sess, nil
}
