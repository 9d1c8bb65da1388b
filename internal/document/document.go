// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document loads user-selected files into the normalized document
// context that grounds a chat session.
//
// Classification is by MIME type: image/* and application/pdf are carried as
// base64 data URIs, everything else is treated as UTF-8 text. A context is
// immutable once created and stays attached to the session it spawned for the
// session's whole lifetime.
package document

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind classifies a loaded document.
type Kind int

const (
	// KindText is any document carried as literal UTF-8 text.
	KindText Kind = iota
	// KindImage is an image/* document carried as base64.
	KindImage
	// KindPDF is an application/pdf document carried as base64.
	KindPDF
)

// String returns the storage form of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	default:
		return "text"
	}
}

// ParseKind converts a storage string back to a Kind.
func ParseKind(s string) Kind {
	switch s {
	case "image":
		return KindImage
	case "pdf":
		return KindPDF
	default:
		return KindText
	}
}

// =============================================================================
// DOCUMENT CONTEXT
// =============================================================================

// Context is the normalized in-memory form of an uploaded file.
//
// Payload holds raw text for KindText and a full base64 data URI
// (data:<mime>;base64,<data>) for KindImage and KindPDF.
type Context struct {
	Kind     Kind
	Payload  string
	MIMEType string
	Name     string
}

// Binary reports whether the payload is carried as base64 inline data.
func (c *Context) Binary() bool {
	return c.Kind == KindImage || c.Kind == KindPDF
}

// InlineData returns the base64 body of a data-URI payload (the part after
// the comma). For text contexts it returns the payload unchanged.
func (c *Context) InlineData() string {
	if !c.Binary() {
		return c.Payload
	}
	if i := strings.IndexByte(c.Payload, ','); i >= 0 {
		return c.Payload[i+1:]
	}
	return c.Payload
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads a file from disk and normalizes it into a Context.
//
// There is no size limit and no content validation; any read failure surfaces
// as an *IOError.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return FromBytes(filepath.Base(path), mimeTypeFor(path, data), data), nil
}

// FromBytes normalizes already-read file content into a Context. Split out
// from Load so callers with in-memory content (tests, pasted data) share the
// classification path.
func FromBytes(name, mimeType string, data []byte) *Context {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return &Context{
			Kind:     KindImage,
			Payload:  dataURI(mimeType, data),
			MIMEType: mimeType,
			Name:     name,
		}
	case mimeType == "application/pdf":
		return &Context{
			Kind:     KindPDF,
			Payload:  dataURI(mimeType, data),
			MIMEType: mimeType,
			Name:     name,
		}
	default:
		if mimeType == "" {
			mimeType = "text/plain"
		}
		return &Context{
			Kind:     KindText,
			Payload:  string(data),
			MIMEType: mimeType,
			Name:     name,
		}
	}
}

// mimeTypeFor resolves a MIME type from the file extension, falling back to
// content sniffing for extensionless files.
func mimeTypeFor(path string, data []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		// Strip parameters such as "; charset=utf-8".
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		return mt
	}
	return http.DetectContentType(data)
}

// dataURI encodes content as a base64 data URI, matching the representation
// a browser FileReader produces.
func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// =============================================================================
// ERRORS
// =============================================================================

// IOError reports a failure to read a selected file. No session exists yet
// when loading fails, so the error surfaces as a notification only.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}
