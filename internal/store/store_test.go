// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/document"
)

// openTestStore creates an in-memory store with one provisioned profile.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.CreateProfile("owner-1", "student@example.com", "student")
	require.NoError(t, err)
	return s
}

func TestProfileLifecycle(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Profile("owner-1")
	require.NoError(t, err)
	assert.Equal(t, "student", p.DisplayName)
	assert.Equal(t, "student@example.com", p.Email)

	require.NoError(t, s.UpdateDisplayName("owner-1", "scholar"))
	p, err = s.Profile("owner-1")
	require.NoError(t, err)
	assert.Equal(t, "scholar", p.DisplayName)

	_, err = s.Profile("nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateDisplayName("nobody", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSession_WithDocument(t *testing.T) {
	s := openTestStore(t)

	doc := &document.Context{
		Kind:     document.KindText,
		Payload:  "study material",
		MIMEType: "text/plain",
		Name:     "notes.txt",
	}
	sess, err := s.CreateSession("owner-1", "Analysis: notes.txt", doc)
	require.NoError(t, err)

	loaded, err := s.Session("owner-1", sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Doc)
	assert.Equal(t, document.KindText, loaded.Doc.Kind)
	assert.Equal(t, "study material", loaded.Doc.Payload)
	assert.Equal(t, "notes.txt", loaded.Doc.Name)
}

func TestSessions_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	first, err := s.CreateSession("owner-1", "first", nil)
	require.NoError(t, err)
	second, err := s.CreateSession("owner-1", "second", nil)
	require.NoError(t, err)

	sessions, err := s.Sessions("owner-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestOwnershipScoping(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateProfile("owner-2", "other@example.com", "other")
	require.NoError(t, err)

	sess, err := s.CreateSession("owner-1", "mine", nil)
	require.NoError(t, err)

	// A different identity cannot see, write into, or delete the session.
	_, err = s.Session("owner-2", sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertMessage("owner-2", sess.ID, RoleUser, "intrusion")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteSession("owner-2", sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	sessions, err := s.Sessions("owner-2")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestInsertMessage_RejectsInvalidRole(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("owner-1", "chat", nil)
	require.NoError(t, err)

	_, err = s.InsertMessage("owner-1", sess.ID, Role("assistant"), "nope")
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))

	msgs, err := s.Messages("owner-1", sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessages_OrderedByCreation(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("owner-1", "chat", nil)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(1 * time.Second), base.Add(2 * time.Second), base.Add(3 * time.Second)}
	i := 0
	s.WithClock(func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	})

	_, err = s.InsertMessage("owner-1", sess.ID, RoleUser, "one")
	require.NoError(t, err)
	_, err = s.InsertMessage("owner-1", sess.ID, RoleModel, "two")
	require.NoError(t, err)
	_, err = s.InsertMessage("owner-1", sess.ID, RoleUser, "three")
	require.NoError(t, err)

	msgs, err := s.Messages("owner-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	assert.True(t, msgs[1].CreatedAt.Before(msgs[2].CreatedAt))
}

func TestDeleteSession_Cascades(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("owner-1", "doomed", nil)
	require.NoError(t, err)

	_, err = s.InsertMessage("owner-1", sess.ID, RoleUser, "hello")
	require.NoError(t, err)
	_, err = s.InsertMessage("owner-1", sess.ID, RoleModel, "hi")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession("owner-1", sess.ID))

	// Messages of a deleted session read back empty, without error.
	msgs, err := s.Messages("owner-1", sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sessions, err := s.Sessions("owner-1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

// =============================================================================
// SUBSCRIPTION TESTS
// =============================================================================

func TestSubscribeSessions_ReceivesOwnEventsOnly(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateProfile("owner-2", "other@example.com", "other")
	require.NoError(t, err)

	sub := s.SubscribeSessions("owner-1")
	defer sub.Unsubscribe()

	_, err = s.CreateSession("owner-1", "mine", nil)
	require.NoError(t, err)
	_, err = s.CreateSession("owner-2", "theirs", nil)
	require.NoError(t, err)

	select {
	case ev := <-sub.C:
		require.NotNil(t, ev.Session)
		assert.Equal(t, "mine", ev.Session.Title)
		assert.Equal(t, EventInsert, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a session event")
	}

	select {
	case ev := <-sub.C:
		t.Fatalf("event leaked across owners: %+v", ev)
	default:
	}
}

func TestSubscribeMessages_ScopedToSession(t *testing.T) {
	s := openTestStore(t)
	sessA, err := s.CreateSession("owner-1", "a", nil)
	require.NoError(t, err)
	sessB, err := s.CreateSession("owner-1", "b", nil)
	require.NoError(t, err)

	sub := s.SubscribeMessages(sessA.ID)
	defer sub.Unsubscribe()

	_, err = s.InsertMessage("owner-1", sessB.ID, RoleUser, "other session")
	require.NoError(t, err)
	_, err = s.InsertMessage("owner-1", sessA.ID, RoleUser, "this session")
	require.NoError(t, err)

	select {
	case ev := <-sub.C:
		require.NotNil(t, ev.Message)
		assert.Equal(t, "this session", ev.Message.Text)
		assert.Equal(t, sessA.ID, ev.Message.SessionID)
	case <-time.After(time.Second):
		t.Fatal("expected a message event")
	}

	select {
	case ev := <-sub.C:
		t.Fatalf("event leaked across sessions: %+v", ev)
	default:
	}
}

func TestSubscription_OverflowFlagsDroppedEvents(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("owner-1", "flood", nil)
	require.NoError(t, err)

	sub := s.SubscribeMessages(sess.ID)
	defer sub.Unsubscribe()
	assert.False(t, sub.Overflowed())

	// Nothing drains the channel, so inserts past the buffer drop events.
	for i := 0; i < subscriptionBuffer+10; i++ {
		_, err := s.InsertMessage("owner-1", sess.ID, RoleUser, "m")
		require.NoError(t, err)
	}

	assert.True(t, sub.Overflowed(), "drops past the buffer must set the flag")
	assert.False(t, sub.Overflowed(), "reading the flag must clear it")
}

func TestUnsubscribe_StopsDeliveryAndIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	sess, err := s.CreateSession("owner-1", "chat", nil)
	require.NoError(t, err)

	sub := s.SubscribeMessages(sess.ID)
	sub.Unsubscribe()
	sub.Unsubscribe() // second call must be safe

	_, err = s.InsertMessage("owner-1", sess.ID, RoleUser, "after unsubscribe")
	require.NoError(t, err)

	// Channel is closed; a receive yields the zero event immediately.
	ev, ok := <-sub.C
	assert.False(t, ok, "channel must be closed, got %+v", ev)
}
