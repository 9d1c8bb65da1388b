// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the persisted session store: profiles, chat
// sessions, and messages in SQLite, plus an in-process change feed that
// notifies subscribers of mutations.
//
// The store is the source of truth; every read and mutation is scoped to the
// owning identity at this boundary.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Schema creates the tables. Messages cascade with their session, sessions
// cascade with their profile.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	doc_kind    TEXT,
	doc_name    TEXT,
	doc_mime    TEXT,
	doc_payload TEXT,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_owner ON chats(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at ASC);
`

// Store handles session persistence and change notification.
type Store struct {
	db       *sql.DB
	notifier *notifier
	now      func() time.Time
}

// DefaultPath returns the default database location, ~/.nexus/sessions.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nexus", "sessions.db"), nil
}

// Open opens (creating if necessary) the session database at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &StoreError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	// SQLite supports one writer at a time; serialize access through a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &StoreError{Op: "pragma", Err: err}
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, &StoreError{Op: "schema", Err: err}
	}

	return &Store{
		db:       db,
		notifier: newNotifier(),
		now:      time.Now,
	}, nil
}

// WithClock replaces the timestamp source. Tests use this to control message
// ordering.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close closes the database and drops all subscriptions.
func (s *Store) Close() error {
	s.notifier.closeAll()
	return s.db.Close()
}
