// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jeranaias/nexus-tui/internal/store"
)

func newProvider(t *testing.T) *LocalProvider {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return NewLocalProvider(st)
}

func TestSignIn_ProvisionsProfileWithLocalPartName(t *testing.T) {
	p := newProvider(t)

	ident, err := p.SignIn(context.Background(), "alex.chen@example.com")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if ident.DisplayName != "alex.chen" {
		t.Errorf("display name must default to the email local part, got %q", ident.DisplayName)
	}
	if ident.Email != "alex.chen@example.com" {
		t.Errorf("got email %q", ident.Email)
	}
}

func TestSignIn_ExistingProfileKeepsEditedName(t *testing.T) {
	p := newProvider(t)

	first, err := p.SignIn(context.Background(), "alex@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.store.UpdateDisplayName(first.ID, "Professor"); err != nil {
		t.Fatal(err)
	}
	if err := p.SignOut(); err != nil {
		t.Fatal(err)
	}

	again, err := p.SignIn(context.Background(), "alex@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Error("same email must map to the same identity")
	}
	if again.DisplayName != "Professor" {
		t.Errorf("edited name must survive re-sign-in, got %q", again.DisplayName)
	}
}

func TestSession_SignedOut(t *testing.T) {
	p := newProvider(t)

	if _, err := p.Session(); !errors.Is(err, ErrSignedOut) {
		t.Errorf("expected ErrSignedOut, got %v", err)
	}

	if _, err := p.SignIn(context.Background(), "x@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Session(); err != nil {
		t.Errorf("expected identity after sign-in, got %v", err)
	}

	if err := p.SignOut(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Session(); !errors.Is(err, ErrSignedOut) {
		t.Errorf("expected ErrSignedOut after sign-out, got %v", err)
	}
}

func TestOnChange_FiresForBothTransitions(t *testing.T) {
	p := newProvider(t)

	var events []*Identity
	p.OnChange(func(ident *Identity) {
		events = append(events, ident)
	})

	if _, err := p.SignIn(context.Background(), "x@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := p.SignOut(); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(events))
	}
	if events[0] == nil {
		t.Error("sign-in must deliver a non-nil identity")
	}
	if events[1] != nil {
		t.Error("sign-out must deliver nil")
	}
}

func TestSignIn_EmptyEmailRejected(t *testing.T) {
	p := newProvider(t)
	if _, err := p.SignIn(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestDefaultDisplayNameFallback(t *testing.T) {
	p := newProvider(t)
	// An address with an empty local part cannot seed a name.
	ident, err := p.SignIn(context.Background(), "@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if ident.DisplayName != DefaultDisplayName {
		t.Errorf("expected fallback %q, got %q", DefaultDisplayName, ident.DisplayName)
	}
}
