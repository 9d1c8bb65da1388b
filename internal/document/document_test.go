// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_TextFile(t *testing.T) {
	content := "chapter one\nthe quick brown fox\n"
	path := writeFile(t, "notes.txt", []byte(content))

	ctx, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ctx.Kind != KindText {
		t.Errorf("expected KindText, got %v", ctx.Kind)
	}
	if ctx.Payload != content {
		t.Errorf("payload must be the literal file text, got %q", ctx.Payload)
	}
	if ctx.Name != "notes.txt" {
		t.Errorf("got name %q", ctx.Name)
	}
	if ctx.Binary() {
		t.Error("text context must not report binary")
	}
}

func TestLoad_PDF(t *testing.T) {
	raw := []byte("%PDF-1.4 fake body")
	path := writeFile(t, "paper.pdf", raw)

	ctx, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ctx.Kind != KindPDF {
		t.Errorf("expected KindPDF, got %v", ctx.Kind)
	}
	if ctx.MIMEType != "application/pdf" {
		t.Errorf("got MIME %q", ctx.MIMEType)
	}
	want := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(raw)
	if ctx.Payload != want {
		t.Errorf("payload is not a data URI: %q", ctx.Payload)
	}
	if decoded, err := base64.StdEncoding.DecodeString(ctx.InlineData()); err != nil || string(decoded) != string(raw) {
		t.Errorf("InlineData did not round-trip: %v", err)
	}
}

func TestLoad_Image(t *testing.T) {
	// Minimal PNG header is enough for classification by extension.
	raw := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	path := writeFile(t, "diagram.png", raw)

	ctx, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ctx.Kind != KindImage {
		t.Errorf("expected KindImage, got %v", ctx.Kind)
	}
	if ctx.MIMEType != "image/png" {
		t.Errorf("got MIME %q", ctx.MIMEType)
	}
	if !strings.HasPrefix(ctx.Payload, "data:image/png;base64,") {
		t.Errorf("payload is not an image data URI: %q", ctx.Payload)
	}
}

func TestLoad_UnknownExtensionFallsBackToSniffing(t *testing.T) {
	path := writeFile(t, "README", []byte("plain words, no extension"))

	ctx, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ctx.Kind != KindText {
		t.Errorf("sniffed plain text should classify as KindText, got %v", ctx.Kind)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("IOError must unwrap to the underlying cause")
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindText, KindImage, KindPDF} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("kind %v did not round-trip (got %v)", k, got)
		}
	}
	if got := ParseKind("garbage"); got != KindText {
		t.Errorf("unknown kind strings default to text, got %v", got)
	}
}
