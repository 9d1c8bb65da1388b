// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the settings overlay: masked API key entry plus the
// display name field.
package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	settingsFieldKey = iota
	settingsFieldName
	settingsFieldCount
)

// settingsForm holds the two editable settings fields. The key field echoes
// mask characters so the secret is never rendered in plaintext.
type settingsForm struct {
	key   textinput.Model
	name  textinput.Model
	focus int
}

// newSettingsForm seeds the form with the current values.
func newSettingsForm(apiKey, displayName string) settingsForm {
	key := textinput.New()
	key.Placeholder = "Gemini API Key"
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '*'
	key.SetValue(apiKey)
	key.Focus()

	name := textinput.New()
	name.Placeholder = "Display name"
	name.SetValue(displayName)

	return settingsForm{key: key, name: name}
}

// Update routes input to the focused field. Tab cycles fields; submit is
// handled by the caller on enter.
func (f settingsForm) Update(msg tea.Msg) (settingsForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "tab" {
		f.focus = (f.focus + 1) % settingsFieldCount
		if f.focus == settingsFieldKey {
			f.key.Focus()
			f.name.Blur()
		} else {
			f.key.Blur()
			f.name.Focus()
		}
		return f, nil
	}

	var cmd tea.Cmd
	if f.focus == settingsFieldKey {
		f.key, cmd = f.key.Update(msg)
	} else {
		f.name, cmd = f.name.Update(msg)
	}
	return f, cmd
}

// Values returns the current field contents.
func (f settingsForm) Values() (apiKey, displayName string) {
	return f.key.Value(), f.name.Value()
}
