// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation sequences the document loader, prompt builder,
// generation gateway, and session store into user-level operations. All
// failures are converted to notifications at this boundary; no turn ends
// silently.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/auth"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/document"
	"github.com/jeranaias/nexus-tui/internal/gemini"
	"github.com/jeranaias/nexus-tui/internal/store"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTitle names a session created without a document.
	DefaultTitle = "New Protocol"

	// titlePrefix names a session created from an uploaded document.
	titlePrefix = "Analysis: "

	// Fixed opening prompts. Every new session gets exactly one opening
	// model turn driven by one of these.
	introWithDoc = "Initialize analysis of the attached data structure."
	introGeneral = "System online. Awaiting query."

	// ErrorReplyPrefix marks a failed turn's persisted model message so the
	// conversation history is self-documenting. The UI styles these rows as
	// errors.
	ErrorReplyPrefix = "**SYSTEM ERROR**: "
)

// ErrNotConfigured routes the caller to the settings view. Returned before
// any row is written or any network call is made.
var ErrNotConfigured = errors.New("no API key configured")

// ErrNoSession is returned when a message is sent with no active session.
var ErrNoSession = errors.New("no active session")

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier receives user-facing notifications. The TUI shows these as
// toasts; the REPL prints them.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// nopNotifier discards everything. Used when no notifier is wired.
type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Info(string)    {}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator owns the active-session pointer and the processing flag and
// exposes the named operations the UI is allowed to perform. State moves
// from no-session to session-active on create or switch, and back on delete.
//
// The processing flag is advisory. It suppresses overlapping sends from the
// UI path but is not a hard mutual-exclusion guarantee across every control
// path.
type Orchestrator struct {
	st       *store.Store
	client   *gemini.Client
	provider auth.Provider
	cfg      *config.Config
	cfgPath  string
	notify   Notifier

	mu         sync.Mutex
	activeID   string
	processing bool
}

// New wires an orchestrator. The notifier may be set later with WithNotifier.
func New(st *store.Store, client *gemini.Client, provider auth.Provider, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		st:       st,
		client:   client,
		provider: provider,
		cfg:      cfg,
		notify:   nopNotifier{},
	}
}

// WithConfigPath overrides where SaveSettings writes the config file.
func (o *Orchestrator) WithConfigPath(path string) *Orchestrator {
	o.cfgPath = path
	return o
}

// WithNotifier sets the notification sink.
func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	if n != nil {
		o.notify = n
	}
	return o
}

// ActiveSession returns the active session id, or "" in the no-session state.
func (o *Orchestrator) ActiveSession() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// SetActiveSession switches the active-session pointer. Feed teardown is the
// caller's concern.
func (o *Orchestrator) SetActiveSession(id string) {
	o.mu.Lock()
	o.activeID = id
	o.mu.Unlock()
}

// Identity returns the signed-in identity, or auth.ErrSignedOut.
func (o *Orchestrator) Identity() (*auth.Identity, error) {
	return o.provider.Session()
}

// Processing reports whether a turn is in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// SessionTitle derives a session title from an optional document context.
func SessionTitle(doc *document.Context) string {
	if doc == nil {
		return DefaultTitle
	}
	return titlePrefix + doc.Name
}

// CreateSession writes a new session row, makes it active, and issues the
// opening model turn. A missing credential does not block creation; the
// opening turn then persists the configuration failure as a model message,
// so the session still gets its reply.
func (o *Orchestrator) CreateSession(ctx context.Context, doc *document.Context) (*store.Session, error) {
	identity, err := o.provider.Session()
	if err != nil {
		return nil, err
	}

	sess, err := o.st.CreateSession(identity.ID, SessionTitle(doc), doc)
	if err != nil {
		o.notify.Error(err.Error())
		return nil, err
	}
	o.SetActiveSession(sess.ID)

	intro := introGeneral
	if doc != nil {
		intro = introWithDoc
	}
	o.runTurn(ctx, identity.ID, sess.ID, intro, doc)
	return sess, nil
}

// CreateSessionFromFile loads a document from disk and starts a session
// grounded in it. Read failures surface as a toast; no session is created.
func (o *Orchestrator) CreateSessionFromFile(ctx context.Context, path string) (*store.Session, error) {
	doc, err := document.Load(path)
	if err != nil {
		o.notify.Error(err.Error())
		return nil, err
	}
	return o.CreateSession(ctx, doc)
}

// DeleteSession removes a session and, when it was active, clears the
// active-session pointer.
func (o *Orchestrator) DeleteSession(id string) error {
	identity, err := o.provider.Session()
	if err != nil {
		return err
	}
	if err := o.st.DeleteSession(identity.ID, id); err != nil {
		o.notify.Error(err.Error())
		return err
	}

	o.mu.Lock()
	if o.activeID == id {
		o.activeID = ""
	}
	o.mu.Unlock()
	return nil
}

// =============================================================================
// MESSAGING
// =============================================================================

// SendMessage runs one user turn against the active session. Blank input and
// an in-flight turn are silent no-ops. A missing credential returns
// ErrNotConfigured before any row is written or any network call is made;
// the caller routes to settings.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return nil
	}
	activeID := o.activeID
	o.mu.Unlock()

	if !o.client.IsConfigured() {
		return ErrNotConfigured
	}
	if activeID == "" {
		return ErrNoSession
	}

	identity, err := o.provider.Session()
	if err != nil {
		return err
	}

	// The turn uses the session's stored document context, not a freshly
	// loaded one.
	sess, err := o.st.Session(identity.ID, activeID)
	if err != nil {
		o.notify.Error(err.Error())
		return err
	}

	if _, err := o.st.InsertMessage(identity.ID, sess.ID, store.RoleUser, text); err != nil {
		o.notify.Error(err.Error())
		return err
	}

	o.runTurn(ctx, identity.ID, sess.ID, text, sess.Doc)
	return nil
}

// runTurn executes one generation round trip and persists exactly one model
// row: the reply on success, an error-formatted text on failure. The turn
// never leaves the conversation without a model-role reply, and the
// processing flag clears on every path.
func (o *Orchestrator) runTurn(ctx context.Context, ownerID, sessionID, query string, doc *document.Context) {
	o.mu.Lock()
	o.processing = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.processing = false
		o.mu.Unlock()
	}()

	segments := gemini.BuildPrompt(query, doc)
	reply, err := o.client.Generate(ctx, segments)
	if err != nil {
		o.notify.Error(err.Error())
		reply = ErrorReplyPrefix + err.Error()
	}

	if _, serr := o.st.InsertMessage(ownerID, sessionID, store.RoleModel, reply); serr != nil {
		// The user row (if any) stays. Partially completed turns remain
		// inspectable rather than being rolled back.
		o.notify.Error(serr.Error())
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveSettings validates and persists the API key, then applies a display
// name change when the name actually changed. A rejected name update fails
// the whole save; the already-persisted key is not rolled back.
func (o *Orchestrator) SaveSettings(apiKey, displayName string) error {
	// An empty key clears the stored credential; only command-shaped input
	// is rejected here. A missing key surfaces at send time instead.
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" {
		if err := gemini.ValidateKey(apiKey); err != nil {
			o.notify.Error(err.Error())
			return err
		}
	}

	o.cfg.Gemini.APIKey = apiKey
	if err := o.saveConfig(); err != nil {
		o.notify.Error(fmt.Sprintf("failed to save settings: %v", err))
		return err
	}
	o.client.SetAPIKey(o.cfg.Gemini.APIKey)

	identity, err := o.provider.Session()
	if err != nil {
		return err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName != "" && displayName != identity.DisplayName {
		if err := o.st.UpdateDisplayName(identity.ID, displayName); err != nil {
			o.notify.Error(err.Error())
			return err
		}
		if lp, ok := o.provider.(*auth.LocalProvider); ok {
			lp.Rename(displayName)
		}
		o.cfg.Profile.DisplayName = displayName
		if err := o.saveConfig(); err != nil {
			o.notify.Error(fmt.Sprintf("failed to save settings: %v", err))
			return err
		}
	}

	o.notify.Success("Settings saved")
	return nil
}

func (o *Orchestrator) saveConfig() error {
	if o.cfgPath != "" {
		return config.SaveTo(o.cfg, o.cfgPath)
	}
	return config.Save(o.cfg)
}
