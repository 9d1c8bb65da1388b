// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the identity capability: who is signed in, sign-in
// and sign-out transitions, and first-run profile provisioning.
//
// The hosted OAuth dance itself is an external collaborator; this package
// defines the capability surface the rest of the application consumes and a
// local provider that anchors identities in the session store.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// DefaultDisplayName is used when no display name can be derived from the
// email address.
const DefaultDisplayName = "Student"

// ErrSignedOut is returned by Session when nobody is signed in.
var ErrSignedOut = errors.New("not signed in")

// Identity is the authenticated principal, cached locally for the session's
// duration. The display name changes only through the explicit profile-edit
// path.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// Provider is the auth capability consumed by the orchestrator and UI.
type Provider interface {
	// Session returns the current identity, or ErrSignedOut.
	Session() (*Identity, error)
	// OnChange registers a callback fired on sign-in (non-nil identity)
	// and sign-out (nil).
	OnChange(fn func(*Identity))
	// SignIn establishes an identity, provisioning a profile on first use.
	SignIn(ctx context.Context, email string) (*Identity, error)
	// SignOut clears the current identity.
	SignOut() error
}

// =============================================================================
// LOCAL PROVIDER
// =============================================================================

// LocalProvider anchors identities in the session store's profiles table.
// Identity ids are derived deterministically from the email address so the
// same user maps to the same profile across runs.
type LocalProvider struct {
	mu        sync.Mutex
	store     *store.Store
	current   *Identity
	callbacks []func(*Identity)
}

// NewLocalProvider creates a provider backed by the given store.
func NewLocalProvider(st *store.Store) *LocalProvider {
	return &LocalProvider{store: st}
}

// Session returns the current identity.
func (p *LocalProvider) Session() (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, ErrSignedOut
	}
	ident := *p.current
	return &ident, nil
}

// OnChange registers a state-change callback.
func (p *LocalProvider) OnChange(fn func(*Identity)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// SignIn establishes the identity for email. On first sign-in the profile is
// provisioned with a display name derived from the email local part.
func (p *LocalProvider) SignIn(ctx context.Context, email string) (*Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := IdentityID(email)

	profile, err := p.store.Profile(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		name := util.EmailLocalPart(email)
		if name == "" {
			name = DefaultDisplayName
		}
		profile, err = p.store.CreateProfile(id, email, name)
		if err != nil {
			return nil, err
		}
	}

	ident := &Identity{ID: profile.ID, Email: profile.Email, DisplayName: profile.DisplayName}

	p.mu.Lock()
	p.current = ident
	callbacks := append([]func(*Identity){}, p.callbacks...)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(ident)
	}
	return ident, nil
}

// SignOut clears the current identity and notifies observers.
func (p *LocalProvider) SignOut() error {
	p.mu.Lock()
	p.current = nil
	callbacks := append([]func(*Identity){}, p.callbacks...)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(nil)
	}
	return nil
}

// Rename updates the cached display name after a profile edit so subsequent
// Session calls reflect the new name.
func (p *LocalProvider) Rename(displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.DisplayName = displayName
	}
}

// IdentityID derives the stable profile id for an email address.
func IdentityID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("nexus:"+email)).String()
}
