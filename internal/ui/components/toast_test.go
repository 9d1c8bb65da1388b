// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestToastManager_AddAndDismiss(t *testing.T) {
	m := NewToastManager()
	if m.HasToasts() {
		t.Fatal("new manager should be empty")
	}

	id := m.AddError("store write failed")
	if !m.HasToasts() {
		t.Fatal("expected a toast after AddError")
	}

	toasts := m.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("expected 1 toast, got %d", len(toasts))
	}
	if toasts[0].Kind != ToastKindError {
		t.Errorf("expected error kind, got %v", toasts[0].Kind)
	}
	if toasts[0].Duration != ErrorToastDuration {
		t.Errorf("error toasts should use the long duration")
	}

	m.Dismiss(id)
	if m.HasToasts() {
		t.Error("toast should be gone after Dismiss")
	}
}

func TestToastManager_NewestFirstAndCap(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 8; i++ {
		m.AddInfo(strings.Repeat("x", i+1))
	}

	toasts := m.Toasts()
	if len(toasts) != 5 {
		t.Fatalf("expected stack capped at 5, got %d", len(toasts))
	}
	// Newest first: the 8-char message leads.
	if len(toasts[0].Message) != 8 {
		t.Errorf("newest toast should be first, got %q", toasts[0].Message)
	}
}

func TestToastManager_TickExpires(t *testing.T) {
	m := NewToastManager()
	m.AddSuccess("Settings saved")

	// Force expiry instead of sleeping.
	m.mu.Lock()
	m.toasts[0].CreatedAt = time.Now().Add(-InfoToastDuration - time.Second)
	m.mu.Unlock()

	if remaining := m.Tick(); len(remaining) != 0 {
		t.Errorf("expected expired toast to be dropped, got %d", len(remaining))
	}
}

func TestRenderToast_ContainsIndicatorAndMessage(t *testing.T) {
	toast := Toast{ID: 1, Message: "rate limited", Kind: ToastKindError, CreatedAt: time.Now(), Duration: ErrorToastDuration}
	out := RenderToast(toast, 80)
	if !strings.Contains(out, "[X]") {
		t.Error("error toast should carry the shape indicator")
	}
	if !strings.Contains(out, "rate limited") {
		t.Error("toast should carry its message")
	}
}

func TestRenderToastStack_EmptyIsEmpty(t *testing.T) {
	if out := RenderToastStack(nil, 80, 24); out != "" {
		t.Errorf("empty stack should render nothing, got %q", out)
	}
}

func TestWrapToastText(t *testing.T) {
	wrapped := wrapToastText("one two three four five", 9)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 9 {
			t.Errorf("line %q exceeds wrap width", line)
		}
	}
}
