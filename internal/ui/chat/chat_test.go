// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/jeranaias/nexus-tui/internal/feed"
	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
	"github.com/jeranaias/nexus-tui/internal/util"
)

func TestDefaultKeyMap_HasQuitAndSubmit(t *testing.T) {
	k := DefaultKeyMap()
	if len(k.Quit.Keys()) == 0 {
		t.Error("quit binding must have keys")
	}
	if len(k.Submit.Keys()) == 0 {
		t.Error("submit binding must have keys")
	}
	if len(k.ShortHelp()) == 0 {
		t.Error("short help should not be empty")
	}
}

func TestSettingsForm_MasksKey(t *testing.T) {
	f := newSettingsForm("secret-key", "Ada")
	if f.key.EchoMode != textinput.EchoPassword {
		t.Error("API key field must not echo plaintext")
	}

	apiKey, name := f.Values()
	if apiKey != "secret-key" {
		t.Errorf("expected stored key value, got %q", apiKey)
	}
	if name != "Ada" {
		t.Errorf("expected display name, got %q", name)
	}
	if strings.Contains(f.key.View(), "secret-key") {
		t.Error("rendered key field leaked the secret")
	}
}

func TestRenderMessage_StylesByRole(t *testing.T) {
	m := &Model{theme: styles.NewTheme()}
	now := time.Now()

	user := m.renderMessage(store.Message{Role: store.RoleUser, Text: "hello", CreatedAt: now})
	if !strings.Contains(user, "YOU") {
		t.Error("user message should carry the YOU label")
	}

	reply := m.renderMessage(store.Message{Role: store.RoleModel, Text: "hi there", CreatedAt: now})
	if !strings.Contains(reply, "NEXUS") {
		t.Error("model message should carry the NEXUS label")
	}

	failed := m.renderMessage(store.Message{Role: store.RoleModel, Text: "**SYSTEM ERROR**: rate limited", CreatedAt: now})
	if !strings.Contains(failed, "rate limited") {
		t.Error("failed turn should render its error text")
	}
}

func TestViewSidebar_TruncatesAndFlattensTitles(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.CreateProfile("owner-1", "ada@example.com", "Ada"); err != nil {
		t.Fatal(err)
	}

	wide := strings.Repeat("データ", 20)
	if _, err := st.CreateSession("owner-1", wide, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateSession("owner-1", "line one\nline two", nil); err != nil {
		t.Fatal(err)
	}

	ctrl, err := feed.NewController(st, "owner-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ctrl.Close()

	m := &Model{theme: styles.NewTheme(), ctrl: ctrl, height: 24}
	out := m.viewSidebar()

	want := util.TruncateWidth(wide, sidebarWidth-6)
	if !strings.Contains(out, want) {
		t.Error("wide title should render width-truncated")
	}
	if !strings.Contains(out, "line one line two") {
		t.Error("multi-line title should render on one line")
	}
}

func TestNotifier_WakesOnce(t *testing.T) {
	n := NewNotifier(nil)
	// The wake channel has capacity one; repeated pokes must not block.
	n.Poke()
	n.Poke()
	n.Poke()

	select {
	case <-n.Wake():
	default:
		t.Fatal("expected a pending wake signal")
	}
	select {
	case <-n.Wake():
		t.Fatal("wake signals should coalesce")
	default:
	}
}
