// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for nexus.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string
	Email   string

	// Command-specific
	File       string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `nexus - terminal client for document-grounded AI analysis

Nexus decodes documents and answers questions against them using the
Gemini generation API. Sessions and messages persist locally in SQLite.

Usage:
  nexus                      Start TUI (default)
  nexus chat [file]          Interactive REPL, optionally grounded in a file
  nexus sessions list        List stored sessions
  nexus sessions delete ID   Delete a session and its messages
  nexus config show          Show configuration (key masked)
  nexus config get KEY       Print one configuration value
  nexus config set KEY VAL   Set a configuration value
  nexus version              Show version information

Global flags:
  -m, --model NAME   Generation model (overrides config)
  --email ADDR       Identity email for the local profile
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output

Configuration keys:
  gemini.api_key, gemini.model, gemini.base_url,
  profile.email, profile.display_name, ui.theme, ui.markdown_width

The API key can also be supplied via NEXUS_GEMINI_API_KEY or
GEMINI_API_KEY. Keys are stored in ~/.nexus/config.toml with 0600
permissions.`

// Parse reads os.Args and routes to a command.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsed := parseGlobalFlags(args)
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "chat":
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			parsed.File = remaining[0]
		}
		return CmdChat, parsed

	case "session", "sessions":
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
			parsed.Raw = remaining[1:]
		}
		return CmdSessions, parsed

	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed

	case "version", "-version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags strips global flags from the argument list.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]
		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "-m", "--model":
			if i+1 < len(args) {
				parsed.Model = args[i+1]
				i++
			}
		case "--email":
			if i+1 < len(args) {
				parsed.Email = args[i+1]
				i++
			}
		default:
			if strings.HasPrefix(arg, "--model=") {
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			} else if strings.HasPrefix(arg, "--email=") {
				parsed.Email = strings.TrimPrefix(arg, "--email=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}
	return remaining, parsed
}

func parseConfigArgs(parsed *Args, remaining []string) {
	if len(remaining) == 0 {
		parsed.Subcommand = "show"
		return
	}
	parsed.Subcommand = strings.ToLower(remaining[0])
	if len(remaining) > 1 {
		parsed.ConfigKey = remaining[1]
	}
	if len(remaining) > 2 {
		parsed.ConfigVal = strings.Join(remaining[2:], " ")
	}
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Println(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("nexus %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
