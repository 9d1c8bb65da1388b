// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"sync/atomic"
)

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// EventType classifies a change notification.
type EventType int

const (
	// EventInsert signals a newly inserted row.
	EventInsert EventType = iota
	// EventDelete signals a removed row.
	EventDelete
)

// Event is one change notification. For session-scope subscriptions Session
// is set; for message-scope subscriptions Message is set.
type Event struct {
	Type    EventType
	Session *Session
	Message *Message
}

// subscriptionBuffer bounds each subscriber channel. A slow consumer loses
// the oldest events rather than blocking writers. Session feeds refetch on
// every event, so a drop only delays them by one notification; append-only
// consumers must check Overflowed and refetch when it reports a loss.
const subscriptionBuffer = 256

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// scope fixes what a subscription observes. It is set at creation and never
// mutated, so callbacks cannot leak across sessions or identities.
type scope struct {
	table     string // "chats" or "messages"
	ownerID   string // set for chats scope
	sessionID string // set for messages scope
}

// Subscription is a live change feed handle. Receive from C; call Unsubscribe
// when done. Unsubscribing is mandatory on teardown or session switch and is
// safe to call more than once.
type Subscription struct {
	C <-chan Event

	ch         chan Event
	scope      scope
	n          *notifier
	once       sync.Once
	overflowed atomic.Bool
}

// Overflowed reports whether delivery dropped an event since the last call,
// clearing the flag. A consumer that applies events incrementally must treat
// a true result as a gap and rebuild its state from the store.
func (s *Subscription) Overflowed() bool {
	return s.overflowed.Swap(false)
}

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.n.remove(s)
		close(s.ch)
	})
}

// notifier fans change events out to scoped subscribers.
type notifier struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[*Subscription]struct{})}
}

func (n *notifier) subscribe(sc scope) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, scope: sc, n: n}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return sub
	}
	n.subs[sub] = struct{}{}
	return sub
}

func (n *notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, sub)
}

// publish delivers ev to every subscription whose scope matches. Delivery is
// non-blocking: when a buffer is full the oldest event is dropped to make
// room, preserving arrival order of what remains.
func (n *notifier) publish(sc scope, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs {
		if sub.scope.table != sc.table {
			continue
		}
		if sub.scope.table == "chats" && sub.scope.ownerID != sc.ownerID {
			continue
		}
		if sub.scope.table == "messages" && sub.scope.sessionID != sc.sessionID {
			continue
		}

		select {
		case sub.ch <- ev:
		default:
			sub.overflowed.Store(true)
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for sub := range n.subs {
		sub.once.Do(func() {
			close(sub.ch)
		})
		delete(n.subs, sub)
	}
}

// =============================================================================
// PUBLIC SUBSCRIBE API
// =============================================================================

// SubscribeSessions returns a change feed for the session list of one owner.
func (s *Store) SubscribeSessions(ownerID string) *Subscription {
	return s.notifier.subscribe(scope{table: "chats", ownerID: ownerID})
}

// SubscribeMessages returns a change feed for one session's messages.
func (s *Store) SubscribeMessages(sessionID string) *Subscription {
	return s.notifier.subscribe(scope{table: "messages", sessionID: sessionID})
}
