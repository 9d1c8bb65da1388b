// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max", "hello", 2, "he"},
		{"unicode", "日本語のテキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.max)
			if got != tt.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestTruncateWidth_CJK(t *testing.T) {
	// Each CJK rune occupies two columns, so the budget of 7 fits two runes
	// plus the three-column ellipsis.
	got := TruncateWidth("日本語テキスト", 7)
	if got != "日本..." {
		t.Errorf("TruncateWidth returned %q", got)
	}
	if got := TruncateWidth("short", 10); got != "short" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestEmailLocalPart(t *testing.T) {
	if got := EmailLocalPart("student@example.com"); got != "student" {
		t.Errorf("got %q", got)
	}
	if got := EmailLocalPart("no-at-sign"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := EmailLocalPart("@example.com"); got != "" {
		t.Errorf("expected empty for missing local part, got %q", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")

	if err := AtomicWriteFile(path, []byte("key = \"value\"\n"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "key = \"value\"\n" {
		t.Errorf("unexpected content: %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	// Overwrite must not leave temp files behind.
	if err := AtomicWriteFile(path, []byte("key = \"other\"\n"), 0600); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
