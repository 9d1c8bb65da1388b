// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the Bubble Tea update loop and the commands it
// dispatches. Orchestrator calls run in command goroutines so the event loop
// never blocks on the network or the store.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSettings:
			return m.updateSettings(msg)
		case modeUpload:
			return m.updateUpload(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateChat(msg)

	case feedUpdatedMsg:
		m.refreshViewport()
		return m, m.waitForWake()

	case sessionCreatedMsg:
		if msg.err == nil {
			m.switchSession(msg.id)
		}
		m.refreshViewport()
		return m, nil

	case sessionDeletedMsg:
		if msg.err == nil && m.ctrl.ActiveSession() == msg.id {
			m.ctrl.Switch("")
		}
		m.selected = 0
		m.refreshViewport()
		return m, nil

	case turnDoneMsg:
		if errors.Is(msg.err, conversation.ErrNotConfigured) {
			m.openSettings()
		}
		m.refreshViewport()
		return m, nil

	case settingsSavedMsg:
		if msg.err == nil {
			m.mode = modeChat
			m.input.Focus()
		}
		return m, nil

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateChat handles keys in the main chat mode.
func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusNext):
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		return m, m.createSessionCmd()

	case key.Matches(msg, m.keys.Upload):
		m.mode = modeUpload
		m.upload.SetValue("")
		m.upload.Focus()
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.openSettings()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id := m.selectedSessionID(); id != "" {
			m.confirmID = id
			m.mode = modeConfirmDelete
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.updateSidebar(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if m.ctrl.ActiveSession() == "" {
			m.toasts.AddInfo("No active session. C-n starts one.")
			return m, nil
		}
		if m.orch.Processing() {
			return m, nil
		}
		m.input.SetValue("")
		return m, m.sendCmd(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateSidebar handles navigation of the session list.
func (m *Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.ctrl.Sessions()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(sessions)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Submit):
		if id := m.selectedSessionID(); id != "" {
			m.switchSession(id)
			m.focus = focusInput
			m.input.Focus()
		}
	}
	return m, nil
}

// updateSettings handles keys while the settings overlay is open.
func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeChat
		m.input.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		apiKey, name := m.settings.Values()
		return m, m.saveSettingsCmd(apiKey, name)
	}

	var cmd tea.Cmd
	m.settings, cmd = m.settings.Update(msg)
	return m, cmd
}

// updateUpload handles keys while the document path prompt is open.
func (m *Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeChat
		m.input.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		path := strings.TrimSpace(m.upload.Value())
		m.mode = modeChat
		m.input.Focus()
		if path == "" {
			return m, nil
		}
		return m, m.createFromFileCmd(path)
	}

	var cmd tea.Cmd
	m.upload, cmd = m.upload.Update(msg)
	return m, cmd
}

// updateConfirmDelete handles the delete confirmation overlay.
func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		id := m.confirmID
		m.confirmID = ""
		m.mode = modeChat
		return m, m.deleteSessionCmd(id)
	case "n", "esc":
		m.confirmID = ""
		m.mode = modeChat
	}
	return m, nil
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)

	mainWidth := width - sidebarWidth - 1
	if mainWidth < 20 {
		mainWidth = 20
	}
	// Header, input bar, and status bar each take one region.
	mainHeight := height - 6
	if mainHeight < 3 {
		mainHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(mainWidth, mainHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = mainHeight
	}
	m.input.Width = mainWidth - 4
	m.refreshViewport()
}

func (m *Model) openSettings() {
	name := ""
	if identity, err := m.orch.Identity(); err == nil {
		name = identity.DisplayName
	}
	m.settings = newSettingsForm(m.cfg.Gemini.APIKey, name)
	m.mode = modeSettings
	m.input.Blur()
}

// switchSession activates a session in both the feed and the orchestrator.
func (m *Model) switchSession(id string) {
	if err := m.ctrl.Switch(id); err != nil {
		m.toasts.AddError(err.Error())
		return
	}
	m.orch.SetActiveSession(id)
	for i, sess := range m.ctrl.Sessions() {
		if sess.ID == id {
			m.selected = i
			break
		}
	}
	m.refreshViewport()
}

func (m *Model) selectedSessionID() string {
	sessions := m.ctrl.Sessions()
	if m.selected < 0 || m.selected >= len(sessions) {
		return ""
	}
	return sessions[m.selected].ID
}

// refreshViewport rebuilds the transcript and pins the view to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) createSessionCmd() tea.Cmd {
	return func() tea.Msg {
		sess, err := m.orch.CreateSession(context.Background(), nil)
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		return sessionCreatedMsg{id: sess.ID}
	}
}

func (m *Model) createFromFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.orch.CreateSessionFromFile(context.Background(), path)
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		return sessionCreatedMsg{id: sess.ID}
	}
}

func (m *Model) deleteSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.orch.DeleteSession(id)
		return sessionDeletedMsg{id: id, err: err}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.orch.SendMessage(context.Background(), text)}
	}
}

func (m *Model) saveSettingsCmd(apiKey, displayName string) tea.Cmd {
	return func() tea.Msg {
		return settingsSavedMsg{err: m.orch.SaveSettings(apiKey, displayName)}
	}
}
