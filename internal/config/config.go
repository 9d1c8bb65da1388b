// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nexus.
//
// The configuration lives in a single TOML file with sensible defaults and
// environment variable overrides:
//   - ~/.nexus/config.toml
//   - Built-in defaults
//
// The file carries the Gemini API key, so it is kept at 0600 and written
// atomically. The key is the only credential this application persists.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/nexus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete nexus configuration.
type Config struct {
	Version string `toml:"version"`

	// Gemini holds the AI provider settings.
	Gemini GeminiConfig `toml:"gemini"`

	// Profile holds the locally cached identity settings.
	Profile ProfileConfig `toml:"profile"`

	// UI holds presentation settings.
	UI UIConfig `toml:"ui"`
}

// GeminiConfig contains the generation endpoint settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Sent only as a query parameter to the
	// generation endpoint; never logged, never rendered unmasked.
	APIKey string `toml:"api_key"`
	// Model is the generation model identifier.
	Model string `toml:"model"`
	// BaseURL is the API base URL. Overridable for tests.
	BaseURL string `toml:"base_url"`
}

// ProfileConfig caches the signed-in identity between runs.
type ProfileConfig struct {
	Email       string `toml:"email"`
	DisplayName string `toml:"display_name"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme selects the color theme: "dark" (default) or "light".
	Theme string `toml:"theme"`
	// MarkdownWidth is the wrap width for rendered model replies (0 = auto).
	MarkdownWidth int `toml:"markdown_width"`
}

// DefaultMarkdownWidth is the wrap width used when markdown_width is unset.
const DefaultMarkdownWidth = 80

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash-preview-09-2025",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the nexus configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nexus"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes config file permissions to 0600.
// The file contains the API key and must not be group/world readable.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads the configuration from the config file, falling back to defaults
// when the file does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides.
// NEXUS_GEMINI_API_KEY takes precedence over GEMINI_API_KEY.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEXUS_GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("NEXUS_GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("NEXUS_GEMINI_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = def.Gemini.BaseURL
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// Save persists the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo persists the configuration to an explicit path, atomically, 0600.
func SaveTo(cfg *Config, path string) error {
	var sb strings.Builder
	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// CREDENTIAL HELPERS
// =============================================================================

// HasAPIKey reports whether a Gemini API key is configured.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

// APIKeyMasked returns a display form of the API key that never exposes key
// material: length plus a SHA-256 fingerprint prefix.
func (c *Config) APIKeyMasked() string {
	key := strings.TrimSpace(c.Gemini.APIKey)
	if key == "" {
		return "[not set]"
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("[set, length=%d, fingerprint=%x]", len(key), h[:4])
}
