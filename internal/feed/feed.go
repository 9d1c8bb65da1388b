// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feed keeps local views of the session store consistent with the
// store itself: an initial bulk fetch plus incremental change notifications.
//
// Two views exist. The session list refetches in full on every change event
// (simplicity over efficiency; the list is small). The message view appends
// newly inserted rows only, relying on the store delivering insert events in
// write order. Feeds own their caches exclusively; consumers read snapshots.
package feed

import (
	"sync"

	"github.com/jeranaias/nexus-tui/internal/store"
)

// =============================================================================
// SESSION FEED
// =============================================================================

// SessionFeed is the live view of one owner's session list, most recent
// first. The owner scope is fixed at creation.
type SessionFeed struct {
	mu       sync.Mutex
	st       *store.Store
	ownerID  string
	sub      *store.Subscription
	sessions []store.Session
	onUpdate func()
}

// NewSessionFeed performs the initial fetch and subscribes to changes.
// onUpdate fires after every cache refresh; it may be nil.
func NewSessionFeed(st *store.Store, ownerID string, onUpdate func()) (*SessionFeed, error) {
	sessions, err := st.Sessions(ownerID)
	if err != nil {
		return nil, err
	}

	f := &SessionFeed{
		st:       st,
		ownerID:  ownerID,
		sub:      st.SubscribeSessions(ownerID),
		sessions: sessions,
		onUpdate: onUpdate,
	}
	go f.run()
	return f, nil
}

// run refetches the full list on every change event until the subscription
// closes.
func (f *SessionFeed) run() {
	for range f.sub.C {
		sessions, err := f.st.Sessions(f.ownerID)
		if err != nil {
			// Keep the previous snapshot; the next event retries.
			continue
		}
		f.mu.Lock()
		f.sessions = sessions
		f.mu.Unlock()
		if f.onUpdate != nil {
			f.onUpdate()
		}
	}
}

// Snapshot returns a copy of the current session list.
func (f *SessionFeed) Snapshot() []store.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Session, len(f.sessions))
	copy(out, f.sessions)
	return out
}

// Close unsubscribes the feed. Mandatory on teardown.
func (f *SessionFeed) Close() {
	f.sub.Unsubscribe()
}

// =============================================================================
// MESSAGE FEED
// =============================================================================

// MessageFeed is the live view of one session's messages, oldest first. The
// session scope is fixed at creation; switching sessions means closing this
// feed and opening a new one.
type MessageFeed struct {
	mu        sync.Mutex
	st        *store.Store
	ownerID   string
	sessionID string
	sub       *store.Subscription
	messages  []store.Message
	onUpdate  func()
}

// NewMessageFeed performs the initial fetch and subscribes to inserts.
func NewMessageFeed(st *store.Store, ownerID, sessionID string, onUpdate func()) (*MessageFeed, error) {
	// Subscribe before the bulk read so an insert landing between the two
	// is not lost; a duplicate of the last fetched row cannot occur because
	// events carry only rows committed after the subscription exists and
	// the fetch runs after it.
	sub := st.SubscribeMessages(sessionID)

	messages, err := st.Messages(ownerID, sessionID)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}

	f := &MessageFeed{
		st:        st,
		ownerID:   ownerID,
		sessionID: sessionID,
		sub:       sub,
		messages:  messages,
		onUpdate:  onUpdate,
	}
	go f.run()
	return f, nil
}

// run appends newly inserted rows. Remote inserts are assumed to arrive in
// creation order; ordering is preserved by construction, not re-sorted. When
// the subscription reports dropped events the cache is rebuilt from the store
// instead, since an append-only view cannot recover a gap.
func (f *MessageFeed) run() {
	for ev := range f.sub.C {
		if f.sub.Overflowed() {
			f.refetch()
			continue
		}
		if ev.Type != store.EventInsert || ev.Message == nil {
			continue
		}
		f.mu.Lock()
		if f.seen(ev.Message.ID) {
			f.mu.Unlock()
			continue
		}
		f.messages = append(f.messages, *ev.Message)
		f.mu.Unlock()
		if f.onUpdate != nil {
			f.onUpdate()
		}
	}
}

// refetch replaces the cache wholesale. The triggering event was committed
// before it was published, so the fresh read covers it; on read error the
// previous snapshot stays and the next event retries.
func (f *MessageFeed) refetch() {
	messages, err := f.st.Messages(f.ownerID, f.sessionID)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.messages = messages
	f.mu.Unlock()
	if f.onUpdate != nil {
		f.onUpdate()
	}
}

// seen reports whether a message id is already cached. Guards the window
// between subscribing and the initial fetch. Caller holds the lock.
func (f *MessageFeed) seen(id string) bool {
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ID == id {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current message list.
func (f *MessageFeed) Snapshot() []store.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// SessionID returns the fixed scope of this feed.
func (f *MessageFeed) SessionID() string {
	return f.sessionID
}

// Close unsubscribes the feed. Mandatory on teardown or session switch.
func (f *MessageFeed) Close() {
	f.sub.Unsubscribe()
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller bundles the session feed with the currently active message feed
// and handles switching between sessions without event leakage.
type Controller struct {
	mu       sync.Mutex
	st       *store.Store
	ownerID  string
	sessions *SessionFeed
	messages *MessageFeed
	onUpdate func()
}

// NewController creates a controller with a live session list and no active
// session.
func NewController(st *store.Store, ownerID string, onUpdate func()) (*Controller, error) {
	sessions, err := NewSessionFeed(st, ownerID, onUpdate)
	if err != nil {
		return nil, err
	}
	return &Controller{
		st:       st,
		ownerID:  ownerID,
		sessions: sessions,
		onUpdate: onUpdate,
	}, nil
}

// Sessions returns the current session list snapshot.
func (c *Controller) Sessions() []store.Session {
	return c.sessions.Snapshot()
}

// Messages returns the active session's message snapshot, or nil when no
// session is active.
func (c *Controller) Messages() []store.Message {
	c.mu.Lock()
	f := c.messages
	c.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Snapshot()
}

// ActiveSession returns the id of the active session, or "".
func (c *Controller) ActiveSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages == nil {
		return ""
	}
	return c.messages.SessionID()
}

// Switch makes sessionID the active session. The previous subscription is
// torn down before the new one is established. An empty id deactivates.
func (c *Controller) Switch(sessionID string) error {
	c.mu.Lock()
	prev := c.messages
	c.messages = nil
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if sessionID == "" {
		return nil
	}

	f, err := NewMessageFeed(c.st, c.ownerID, sessionID, c.onUpdate)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = f
	c.mu.Unlock()
	return nil
}

// Close tears down all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	msgs := c.messages
	c.messages = nil
	c.mu.Unlock()

	if msgs != nil {
		msgs.Close()
	}
	c.sessions.Close()
}
