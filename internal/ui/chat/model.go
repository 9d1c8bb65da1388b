// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// The model renders three regions: a session sidebar, a message viewport
// with markdown-rendered replies, and an input bar. Settings and delete
// confirmation are modal overlays. Store changes arrive through the feed
// controller's wake channel, never by polling.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/feed"
	"github.com/jeranaias/nexus-tui/internal/gemini"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// =============================================================================
// MODES AND FOCUS
// =============================================================================

type mode int

const (
	modeChat mode = iota
	modeSettings
	modeUpload
	modeConfirmDelete
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const sidebarWidth = 28

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier bridges orchestrator notifications into the toast stack and wakes
// the event loop. Safe to call from tea.Cmd goroutines.
type Notifier struct {
	toasts *components.ToastManager
	wake   chan struct{}
}

// NewNotifier creates a notifier feeding the given toast manager.
func NewNotifier(toasts *components.ToastManager) *Notifier {
	return &Notifier{toasts: toasts, wake: make(chan struct{}, 1)}
}

func (n *Notifier) Success(msg string) { n.toasts.AddSuccess(msg); n.Poke() }
func (n *Notifier) Error(msg string)   { n.toasts.AddError(msg); n.Poke() }
func (n *Notifier) Info(msg string)    { n.toasts.AddInfo(msg); n.Poke() }

// Wake returns the channel the model waits on for repaints.
func (n *Notifier) Wake() chan struct{} {
	return n.wake
}

// Poke schedules a repaint without a toast. Non-blocking; concurrent pokes
// coalesce into one wake.
func (n *Notifier) Poke() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	orch   *conversation.Orchestrator
	ctrl   *feed.Controller
	client *gemini.Client
	cfg    *config.Config

	theme  *styles.Theme
	keys   KeyMap
	toasts *components.ToastManager
	wake   chan struct{}

	viewport viewport.Model
	input    textinput.Model
	upload   textinput.Model
	spin     spinner.Model
	settings settingsForm
	renderer *glamour.TermRenderer

	mode      mode
	focus     focusArea
	selected  int
	confirmID string

	width  int
	height int
	ready  bool
}

// New builds the chat model. The notifier must be the one wired into the
// orchestrator so toasts and repaints reach this model.
func New(orch *conversation.Orchestrator, ctrl *feed.Controller, client *gemini.Client, cfg *config.Config, notify *Notifier) *Model {
	input := textinput.New()
	input.Placeholder = "Transmit a query..."
	input.CharLimit = 0
	input.Focus()

	upload := textinput.New()
	upload.Placeholder = "Path to document..."

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Violet)

	wrap := cfg.UI.MarkdownWidth
	if wrap <= 0 {
		wrap = config.DefaultMarkdownWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		renderer = nil
	}

	return &Model{
		orch:     orch,
		ctrl:     ctrl,
		client:   client,
		cfg:      cfg,
		theme:    styles.NewTheme(),
		keys:     DefaultKeyMap(),
		toasts:   notify.toasts,
		wake:     notify.Wake(),
		input:    input,
		upload:   upload,
		spin:     spin,
		renderer: renderer,
	}
}

// Init starts the tickers and the wake listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		components.ToastTickCmd(),
		m.waitForWake(),
	)
}

// waitForWake blocks a command goroutine until something wants a repaint.
func (m *Model) waitForWake() tea.Cmd {
	return func() tea.Msg {
		<-m.wake
		return feedUpdatedMsg{}
	}
}

// renderMarkdown renders model replies through glamour, falling back to the
// raw text when the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
