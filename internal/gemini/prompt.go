// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the Gemini generateContent integration: prompt
// construction and the HTTP gateway for single-turn generation requests.
package gemini

import (
	"github.com/jeranaias/nexus-tui/internal/document"
)

// =============================================================================
// PERSONA TEMPLATES
// =============================================================================

// The persona is selected solely by the presence of a document context.
// There are exactly two templates and exactly one appears per request.
const (
	// personaAnalyst grounds the model in an attached document.
	personaAnalyst = "ROLE: You are \"Nexus\", a high-intelligence analytical engine.\n" +
		"GOAL: Decode the document with surgical precision.\n" +
		"STYLE: Use Markdown, be concise, pure data."

	// personaArchitect is the general-knowledge persona.
	personaArchitect = "ROLE: You are \"Nexus\", the architect of knowledge.\n" +
		"GOAL: Provide elite-level insight.\n" +
		"STYLE: Royal, authoritative, futuristic."
)

// Delimiters wrapping literal document text inside the persona segment.
const (
	dataStreamStart = "\n\n--- DATA STREAM ---\n"
	dataStreamEnd   = "\n--- END STREAM ---\n\n"
)

// queryPrefix and assistantCue form the mandatory trailing segment of every
// request, regardless of mode.
const (
	queryPrefix  = "QUERY: "
	assistantCue = "\n\nNEXUS:"
)

// =============================================================================
// REQUEST SEGMENTS
// =============================================================================

// Segment is one unit of an AI request body: either a text block or a
// MIME-tagged inline attachment. Exactly one of Text / Inline is set.
type Segment struct {
	Text   string
	Inline *InlineData
}

// InlineData carries a base64 binary payload alongside its MIME type.
type InlineData struct {
	MIMEType string
	Data     string
}

// TextSegment creates a text segment.
func TextSegment(text string) Segment {
	return Segment{Text: text}
}

// InlineSegment creates a binary attachment segment.
func InlineSegment(mimeType, data string) Segment {
	return Segment{Inline: &InlineData{MIMEType: mimeType, Data: data}}
}

// =============================================================================
// PROMPT CONSTRUCTION
// =============================================================================

// BuildPrompt maps a user query and an optional document context to the
// ordered request segments. Pure: no I/O, deterministic.
//
// Layout by mode:
//   - text document: one segment interleaving the analyst persona with the
//     literal document text between explicit stream delimiters;
//   - image/pdf document: the analyst persona as text, then one inline-data
//     segment carrying the base64 payload tagged with its MIME type;
//   - no document: the general persona alone.
//
// Every request ends with the fixed "QUERY: <text>" / assistant cue segment.
// Empty queries pass through unmodified; non-empty validation happens
// upstream.
func BuildPrompt(query string, doc *document.Context) []Segment {
	var segments []Segment

	if doc != nil {
		if doc.Kind == document.KindText {
			segments = append(segments, TextSegment(
				personaAnalyst+dataStreamStart+doc.Payload+dataStreamEnd))
		} else {
			segments = append(segments,
				TextSegment(personaAnalyst),
				InlineSegment(doc.MIMEType, doc.InlineData()))
		}
	} else {
		segments = append(segments, TextSegment(personaArchitect))
	}

	segments = append(segments, TextSegment(queryPrefix+query+assistantCue))
	return segments
}
