// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is the base URL for the Gemini API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "gemini-2.5-flash-preview-09-2025"

	// FallbackReply is returned when a success response carries no candidate
	// text. An empty success body is not an error.
	FallbackReply = "Connection severed. Retry."

	// MaxResponseSize caps the response body read.
	MaxResponseSize = 10 * 1024 * 1024
)

// badKeyPrefixes are shell-command shapes users paste instead of a key.
// Prefix matching only; full key-format validation is deliberately not
// attempted.
var badKeyPrefixes = []string{"npm", "npx", "pip", "brew", "go install"}

// sharedHTTPClient pools connections across all generation requests. No
// client timeout: each call is cancelled through its context, matching the
// transport-default behavior the design relies on.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

// ConfigError reports a missing or malformed credential. It is raised before
// any network activity and routes the UI to the settings prompt.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Reason
}

// UpstreamError reports a non-success response from the generation endpoint.
type UpstreamError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return e.Message
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// generatePart is one content part: a text block or an inline attachment.
type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inlineData,omitempty"`
}

type generateInline struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the gateway to the Gemini generateContent endpoint.
//
// Each call is a single attempt with no retry, no caching, and no timeout
// beyond the caller's context. The API key travels only as a query parameter
// on the generation URL.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gateway client with the given API key. An empty key is
// allowed at construction; Generate fails fast before any network call.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// WithModel sets the generation model.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithHTTPClient sets a custom HTTP client (tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetAPIKey replaces the credential. Called from the settings-save path only.
func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = strings.TrimSpace(apiKey)
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a SHA-256 fingerprint of the key for logging. Key
// material itself is never logged or displayed.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// ValidateKey applies the known-bad-prefix heuristic against a candidate key.
// It guards against users pasting an install command instead of a secret; it
// does not attempt to verify the key with the provider.
func ValidateKey(apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return &ConfigError{Reason: "API Key is missing"}
	}
	for _, prefix := range badKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return &ConfigError{Reason: "Invalid Key. You pasted the installation command. Please enter your actual Gemini API Key."}
		}
	}
	return nil
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends the constructed segments to the generation endpoint and
// returns the reply text.
//
// Fails fast with *ConfigError before any network activity when the key is
// absent or command-shaped. Non-success responses surface as *UpstreamError
// carrying the provider message when one can be parsed. A success response
// with no candidate text yields FallbackReply, not an error.
func (c *Client) Generate(ctx context.Context, segments []Segment) (string, error) {
	if err := ValidateKey(c.apiKey); err != nil {
		return "", err
	}

	parts := make([]generatePart, 0, len(segments))
	for _, seg := range segments {
		if seg.Inline != nil {
			parts = append(parts, generatePart{
				InlineData: &generateInline{
					MIMEType: seg.Inline.MIMEType,
					Data:     seg.Inline.Data,
				},
			})
		} else {
			parts = append(parts, generatePart{Text: seg.Text})
		}
	}

	reqBody := generateRequest{
		Contents: []generateContent{{Role: "user", Parts: parts}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return FallbackReply, nil
	}
	if len(genResp.Candidates) == 0 ||
		len(genResp.Candidates[0].Content.Parts) == 0 ||
		genResp.Candidates[0].Content.Parts[0].Text == "" {
		return FallbackReply, nil
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// handleErrorResponse converts a non-success body into an *UpstreamError,
// preferring the provider-supplied message over the generic status text.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &UpstreamError{Status: statusCode, Message: apiErr.Error.Message}
	}
	return &UpstreamError{Status: statusCode, Message: http.StatusText(statusCode)}
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// logRequest logs an API request without exposing sensitive data. The query
// string carries the key and is never logged.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration only; never the body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
