// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist or does not
// belong to the requesting identity.
var ErrNotFound = errors.New("not found")

// CreateProfile inserts a new identity row.
func (s *Store) CreateProfile(id, email, displayName string) (*Profile, error) {
	now := s.now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
		id, email, displayName, now.UnixNano(),
	)
	if err != nil {
		return nil, &StoreError{Op: "create profile", Err: err}
	}
	return &Profile{ID: id, Email: email, DisplayName: displayName, CreatedAt: now}, nil
}

// Profile loads an identity row by id. Returns a *StoreError wrapping
// ErrNotFound when no profile exists yet.
func (s *Store) Profile(id string) (*Profile, error) {
	row := s.db.QueryRow(
		`SELECT id, email, display_name, created_at FROM profiles WHERE id = ?`, id,
	)

	var p Profile
	var createdAt int64
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &StoreError{Op: "profile", Err: ErrNotFound}
		}
		return nil, &StoreError{Op: "profile", Err: err}
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	return &p, nil
}

// UpdateDisplayName changes the display name of one profile. Fails with
// ErrNotFound when the profile does not exist, so a settings save can abort
// cleanly.
func (s *Store) UpdateDisplayName(id, displayName string) error {
	res, err := s.db.Exec(
		`UPDATE profiles SET display_name = ? WHERE id = ?`, displayName, id,
	)
	if err != nil {
		return &StoreError{Op: "update display name", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &StoreError{Op: "update display name", Err: ErrNotFound}
	}
	return nil
}
