// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.CreateProfile("owner-1", "one@example.com", "One")
	require.NoError(t, err)
	_, err = st.CreateProfile("owner-2", "two@example.com", "Two")
	require.NoError(t, err)
	return st
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSessionFeed_RefetchOnChange(t *testing.T) {
	st := newTestStore(t)

	f, err := NewSessionFeed(st, "owner-1", nil)
	require.NoError(t, err)
	defer f.Close()
	require.Empty(t, f.Snapshot())

	a, err := st.CreateSession("owner-1", "New Protocol", nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return len(f.Snapshot()) == 1 })

	b, err := st.CreateSession("owner-1", "Analysis: report.txt", nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return len(f.Snapshot()) == 2 })

	// Most recent first.
	got := f.Snapshot()
	require.Equal(t, b.ID, got[0].ID)
	require.Equal(t, a.ID, got[1].ID)

	require.NoError(t, st.DeleteSession("owner-1", b.ID))
	waitFor(t, func() bool { return len(f.Snapshot()) == 1 })
	require.Equal(t, a.ID, f.Snapshot()[0].ID)
}

func TestSessionFeed_IgnoresOtherOwners(t *testing.T) {
	st := newTestStore(t)

	f, err := NewSessionFeed(st, "owner-1", nil)
	require.NoError(t, err)
	defer f.Close()

	_, err = st.CreateSession("owner-2", "New Protocol", nil)
	require.NoError(t, err)
	_, err = st.CreateSession("owner-1", "New Protocol", nil)
	require.NoError(t, err)

	waitFor(t, func() bool { return len(f.Snapshot()) == 1 })
	time.Sleep(50 * time.Millisecond)
	require.Len(t, f.Snapshot(), 1)
}

func TestMessageFeed_AppendPreservesOrder(t *testing.T) {
	st := newTestStore(t)
	sess, err := st.CreateSession("owner-1", "New Protocol", nil)
	require.NoError(t, err)
	_, err = st.InsertMessage("owner-1", sess.ID, store.RoleUser, "first")
	require.NoError(t, err)

	f, err := NewMessageFeed(st, "owner-1", sess.ID, nil)
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.Snapshot(), 1)

	_, err = st.InsertMessage("owner-1", sess.ID, store.RoleModel, "second")
	require.NoError(t, err)
	_, err = st.InsertMessage("owner-1", sess.ID, store.RoleUser, "third")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(f.Snapshot()) == 3 })
	got := f.Snapshot()
	require.Equal(t, "first", got[0].Text)
	require.Equal(t, "second", got[1].Text)
	require.Equal(t, "third", got[2].Text)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].CreatedAt.Before(got[i-1].CreatedAt))
	}
}

func TestController_SwitchTearsDownPreviousScope(t *testing.T) {
	st := newTestStore(t)
	sessA, err := st.CreateSession("owner-1", "A", nil)
	require.NoError(t, err)
	sessB, err := st.CreateSession("owner-1", "B", nil)
	require.NoError(t, err)

	c, err := NewController(st, "owner-1", nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Switch(sessA.ID))
	require.Equal(t, sessA.ID, c.ActiveSession())

	require.NoError(t, c.Switch(sessB.ID))
	require.Equal(t, sessB.ID, c.ActiveSession())

	// Traffic on the old session must not reach the active view.
	_, err = st.InsertMessage("owner-1", sessA.ID, store.RoleUser, "stale")
	require.NoError(t, err)
	_, err = st.InsertMessage("owner-1", sessB.ID, store.RoleUser, "live")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(c.Messages()) == 1 })
	time.Sleep(50 * time.Millisecond)
	got := c.Messages()
	require.Len(t, got, 1)
	require.Equal(t, "live", got[0].Text)
	require.Equal(t, sessB.ID, got[0].SessionID)
}

func TestController_SwitchEmptyDeactivates(t *testing.T) {
	st := newTestStore(t)
	sess, err := st.CreateSession("owner-1", "A", nil)
	require.NoError(t, err)

	c, err := NewController(st, "owner-1", nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Switch(sess.ID))
	require.NoError(t, c.Switch(""))
	require.Equal(t, "", c.ActiveSession())
	require.Nil(t, c.Messages())
}

func TestFeed_OnUpdateFires(t *testing.T) {
	st := newTestStore(t)

	updates := make(chan struct{}, 16)
	f, err := NewSessionFeed(st, "owner-1", func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer f.Close()

	_, err = st.CreateSession("owner-1", "New Protocol", nil)
	require.NoError(t, err)

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("onUpdate never fired")
	}
}

func TestMessageFeed_RebuildsAfterDroppedEvents(t *testing.T) {
	st := newTestStore(t)
	sess, err := st.CreateSession("owner-1", "flood", nil)
	require.NoError(t, err)

	// Flood the subscription before anything reads it so the buffer
	// overflows and events are lost. The feed must notice the gap and
	// rebuild from the store rather than append what survived.
	sub := st.SubscribeMessages(sess.ID)
	const total = 300
	for i := 0; i < total; i++ {
		_, err := st.InsertMessage("owner-1", sess.ID, store.RoleUser, "m")
		require.NoError(t, err)
	}

	f := &MessageFeed{st: st, ownerID: "owner-1", sessionID: sess.ID, sub: sub}
	go f.run()
	defer f.Close()

	waitFor(t, func() bool { return len(f.Snapshot()) == total })
}
