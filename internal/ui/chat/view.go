// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file renders the chat screen: header, sidebar, transcript, input bar,
// status bar, and the modal overlays.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// View renders the full screen.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.mode {
	case modeSettings:
		body = m.viewSettings()
	case modeConfirmDelete:
		body = m.viewConfirmDelete()
	case modeUpload:
		body = m.viewUpload()
	default:
		body = m.viewChat()
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		body,
		m.viewStatusBar(),
	)

	if m.toasts.HasToasts() {
		overlay := components.RenderToastStack(m.toasts.Toasts(), m.width, 0)
		screen = lipgloss.JoinVertical(lipgloss.Left, screen, overlay)
	}
	return screen
}

// =============================================================================
// REGIONS
// =============================================================================

func (m *Model) viewHeader() string {
	brand := m.theme.Brand.Render("NEXUS")
	who := ""
	if identity, err := m.orch.Identity(); err == nil {
		who = identity.DisplayName
	}

	var keyBadge string
	if m.client.IsConfigured() {
		keyBadge = m.theme.KeyConfigured.Render("KEY " + m.client.KeyFingerprint())
	} else {
		keyBadge = m.theme.KeyMissing.Render("NO KEY")
	}

	left := brand + "  " + who
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(keyBadge) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + keyBadge)
}

func (m *Model) viewChat() string {
	sidebar := m.viewSidebar()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.viewInput(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (m *Model) viewSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("PROTOCOLS"))
	b.WriteString("\n\n")

	sessions := m.ctrl.Sessions()
	if len(sessions) == 0 {
		b.WriteString(m.theme.SessionItem.Render("(none yet)"))
	}
	active := m.ctrl.ActiveSession()
	for i, sess := range sessions {
		title := util.TruncateWidth(util.Flatten(sess.Title), sidebarWidth-6)
		line := "  " + title
		if sess.Doc != nil {
			line += " " + m.theme.SessionDocBadge.Render("#")
		}
		switch {
		case m.focus == focusSidebar && i == m.selected:
			line = "> " + title
			b.WriteString(m.theme.SessionSelected.Render(line))
		case sess.ID == active:
			b.WriteString(m.theme.SessionSelected.Render(line))
		default:
			b.WriteString(m.theme.SessionItem.Render(line))
		}
		b.WriteString("\n")
	}

	height := m.height - 4
	if height < 3 {
		height = 3
	}
	return m.theme.Sidebar.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m *Model) viewInput() string {
	prompt := m.theme.InputPrompt.Render("> ")
	if m.orch.Processing() {
		return m.theme.InputContainer.Render(m.spin.View() + " " + m.theme.Processing.Render("Decoding..."))
	}
	return m.theme.InputContainer.Render(prompt + m.input.View())
}

func (m *Model) viewStatusBar() string {
	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		help := binding.Help()
		parts = append(parts,
			m.theme.ShortcutKey.Render(help.Key)+" "+m.theme.ShortcutDesc.Render(help.Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the active session's messages oldest first.
func (m *Model) renderTranscript() string {
	msgs := m.ctrl.Messages()
	if len(msgs) == 0 {
		if m.ctrl.ActiveSession() == "" {
			return m.theme.Timestamp.Render("\n  System standby. C-n starts a new protocol, C-o decodes a document.")
		}
		return ""
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMessage renders one bubble. Model replies go through glamour; failed
// turns get the error styling.
func (m *Model) renderMessage(msg store.Message) string {
	stamp := m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	switch {
	case msg.Role == store.RoleUser:
		return stamp + " YOU\n" + m.theme.UserBubble.Render(msg.Text) + "\n"
	case strings.HasPrefix(msg.Text, conversation.ErrorReplyPrefix):
		return stamp + " NEXUS\n" + m.theme.ErrorBubble.Render(msg.Text) + "\n"
	default:
		return stamp + " NEXUS\n" + m.theme.ModelBubble.Render(strings.TrimSpace(m.renderMarkdown(msg.Text))) + "\n"
	}
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(m.theme.SettingsTitle.Render("SETTINGS"))
	b.WriteString("\n\n")

	keyLabel := m.theme.SettingsLabel.Render("API Key")
	nameLabel := m.theme.SettingsLabel.Render("Display Name")
	if m.settings.focus == settingsFieldKey {
		keyLabel = m.theme.SettingsActive.Render("API Key")
	} else {
		nameLabel = m.theme.SettingsActive.Render("Display Name")
	}

	b.WriteString(keyLabel + "\n" + m.settings.key.View() + "\n\n")
	b.WriteString(nameLabel + "\n" + m.settings.name.View() + "\n\n")
	b.WriteString(m.theme.ShortcutDesc.Render("Tab switch field  Enter save  Esc cancel"))

	box := m.theme.SettingsBox.Render(b.String())
	return m.center(box)
}

func (m *Model) viewUpload() string {
	var b strings.Builder
	b.WriteString(m.theme.SettingsTitle.Render("DECODE DOCUMENT"))
	b.WriteString("\n\n")
	b.WriteString(m.upload.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.ShortcutDesc.Render("Enter load  Esc cancel"))
	return m.center(m.theme.SettingsBox.Render(b.String()))
}

func (m *Model) viewConfirmDelete() string {
	title := ""
	for _, sess := range m.ctrl.Sessions() {
		if sess.ID == m.confirmID {
			title = sess.Title
			break
		}
	}
	title = util.TruncateRunes(util.Flatten(title), 40)
	content := "Delete \"" + title + "\" and all of its messages?\n\n" +
		m.theme.ShortcutDesc.Render("y confirm  n cancel")
	return m.center(m.theme.ConfirmBox.Render(content))
}

func (m *Model) center(content string) string {
	height := m.height - 4
	if height < 3 {
		height = 3
	}
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}
