// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"strings"
	"testing"

	"github.com/jeranaias/nexus-tui/internal/document"
)

func countPersonas(segments []Segment) int {
	n := 0
	for _, seg := range segments {
		if strings.Contains(seg.Text, personaAnalyst) {
			n++
		}
		if strings.Contains(seg.Text, personaArchitect) {
			n++
		}
	}
	return n
}

func TestBuildPrompt_NoDocument(t *testing.T) {
	segments := BuildPrompt("what is entropy", nil)

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Text != personaArchitect {
		t.Error("first segment must be the general persona alone")
	}
	if countPersonas(segments) != 1 {
		t.Error("exactly one persona must appear")
	}

	last := segments[len(segments)-1]
	if last.Text != "QUERY: what is entropy\n\nNEXUS:" {
		t.Errorf("trailing cue malformed: %q", last.Text)
	}
}

func TestBuildPrompt_TextDocument(t *testing.T) {
	doc := &document.Context{
		Kind:     document.KindText,
		Payload:  "cells divide by mitosis",
		MIMEType: "text/plain",
		Name:     "bio.txt",
	}

	segments := BuildPrompt("summarize", doc)

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	first := segments[0].Text
	if !strings.HasPrefix(first, personaAnalyst) {
		t.Error("persona must precede the delimited payload")
	}
	want := "--- DATA STREAM ---\ncells divide by mitosis\n--- END STREAM ---"
	if !strings.Contains(first, want) {
		t.Errorf("document text must sit between the stream delimiters, got %q", first)
	}
	if strings.Count(first, personaAnalyst) != 1 {
		t.Error("instructions must appear exactly once, before the payload")
	}
	for _, seg := range segments {
		if seg.Inline != nil {
			t.Error("text documents must not produce inline segments")
		}
	}
}

func TestBuildPrompt_BinaryDocument(t *testing.T) {
	for _, kind := range []document.Kind{document.KindImage, document.KindPDF} {
		t.Run(kind.String(), func(t *testing.T) {
			doc := &document.Context{
				Kind:     kind,
				Payload:  "data:application/octet-stream;base64,QUJD",
				MIMEType: "application/pdf",
				Name:     "file.bin",
			}
			if kind == document.KindImage {
				doc.MIMEType = "image/png"
			}

			segments := BuildPrompt("describe", doc)
			if len(segments) < 2 {
				t.Fatalf("binary documents must produce at least 2 segments, got %d", len(segments))
			}

			var inline []*InlineData
			for _, seg := range segments {
				if seg.Inline != nil {
					inline = append(inline, seg.Inline)
				}
			}
			if len(inline) != 1 {
				t.Fatalf("expected exactly one inline segment, got %d", len(inline))
			}
			if inline[0].MIMEType != doc.MIMEType {
				t.Errorf("inline MIME %q does not match document %q", inline[0].MIMEType, doc.MIMEType)
			}
			// Payload is the data-URI body, not the full URI.
			if inline[0].Data != "QUJD" {
				t.Errorf("inline data must be the base64 body, got %q", inline[0].Data)
			}
			if segments[0].Text != personaAnalyst {
				t.Error("persona segment must be plain text, separate from the attachment")
			}
		})
	}
}

func TestBuildPrompt_TrailingCueAlways(t *testing.T) {
	cases := []struct {
		name  string
		query string
		doc   *document.Context
	}{
		{"no doc", "q1", nil},
		{"text doc", "q2", &document.Context{Kind: document.KindText, Payload: "p"}},
		{"pdf doc", "q3", &document.Context{Kind: document.KindPDF, Payload: "data:application/pdf;base64,QQ==", MIMEType: "application/pdf"}},
		{"empty query", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments := BuildPrompt(tc.query, tc.doc)
			last := segments[len(segments)-1]
			if last.Inline != nil {
				t.Fatal("last segment must be text")
			}
			if last.Text != queryPrefix+tc.query+assistantCue {
				t.Errorf("trailing cue malformed: %q", last.Text)
			}
			if countPersonas(segments) != 1 {
				t.Error("exactly one persona per request")
			}
		})
	}
}

func TestBuildPrompt_EmptyQueryPassesThrough(t *testing.T) {
	segments := BuildPrompt("", nil)
	last := segments[len(segments)-1]
	if last.Text != "QUERY: \n\nNEXUS:" {
		t.Errorf("empty query must pass through unmodified, got %q", last.Text)
	}
}
