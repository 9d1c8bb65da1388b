// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea messages the chat model reacts to.
package chat

// feedUpdatedMsg signals that a live view changed and the screen is stale.
type feedUpdatedMsg struct{}

// sessionCreatedMsg reports the outcome of a create-session command.
type sessionCreatedMsg struct {
	id  string
	err error
}

// sessionDeletedMsg reports the outcome of a delete-session command.
type sessionDeletedMsg struct {
	id  string
	err error
}

// turnDoneMsg reports the outcome of a send-message command.
type turnDoneMsg struct {
	err error
}

// settingsSavedMsg reports the outcome of a settings save.
type settingsSavedMsg struct {
	err error
}
