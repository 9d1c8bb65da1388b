// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// configcmd.go - Configuration command handlers.
//
// Handles "nexus config show|get|set". The API key is never printed in the
// clear; show and get render the masked fingerprint form.
package cli

import (
	"fmt"
	"strconv"

	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/gemini"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(cfg *config.Config, args Args) error {
	switch args.Subcommand {
	case "show", "":
		printConfig(cfg)
		return nil

	case "get":
		if args.ConfigKey == "" {
			return fmt.Errorf("usage: nexus config get KEY")
		}
		val, err := configValue(cfg, args.ConfigKey)
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return fmt.Errorf("usage: nexus config set KEY VALUE")
		}
		if err := setConfigValue(cfg, args.ConfigKey, args.ConfigVal); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Printf("Set %s\n", args.ConfigKey)
		}
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s (try show, get, set)", args.Subcommand)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println("gemini.api_key        =", cfg.APIKeyMasked())
	fmt.Println("gemini.model          =", cfg.Gemini.Model)
	fmt.Println("gemini.base_url       =", cfg.Gemini.BaseURL)
	fmt.Println("profile.email         =", cfg.Profile.Email)
	fmt.Println("profile.display_name  =", cfg.Profile.DisplayName)
	fmt.Println("ui.theme              =", cfg.UI.Theme)
	fmt.Println("ui.markdown_width     =", cfg.UI.MarkdownWidth)
}

func configValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "gemini.api_key":
		return cfg.APIKeyMasked(), nil
	case "gemini.model":
		return cfg.Gemini.Model, nil
	case "gemini.base_url":
		return cfg.Gemini.BaseURL, nil
	case "profile.email":
		return cfg.Profile.Email, nil
	case "profile.display_name":
		return cfg.Profile.DisplayName, nil
	case "ui.theme":
		return cfg.UI.Theme, nil
	case "ui.markdown_width":
		return strconv.Itoa(cfg.UI.MarkdownWidth), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setConfigValue(cfg *config.Config, key, val string) error {
	switch key {
	case "gemini.api_key":
		if err := gemini.ValidateKey(val); err != nil {
			return err
		}
		cfg.Gemini.APIKey = val
	case "gemini.model":
		cfg.Gemini.Model = val
	case "gemini.base_url":
		cfg.Gemini.BaseURL = val
	case "profile.email":
		cfg.Profile.Email = val
	case "profile.display_name":
		cfg.Profile.DisplayName = val
	case "ui.theme":
		if val != "dark" && val != "light" {
			return fmt.Errorf("theme must be dark or light, got %q", val)
		}
		cfg.UI.Theme = val
	case "ui.markdown_width":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("markdown_width must be a non-negative integer, got %q", val)
		}
		cfg.UI.MarkdownWidth = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
