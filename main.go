// nexus - terminal client for document-grounded AI analysis.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/auth"
	"github.com/jeranaias/nexus-tui/internal/cli"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/feed"
	"github.com/jeranaias/nexus-tui/internal/gemini"
	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/ui/chat"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)

	case cli.CmdChat:
		app, err := buildApp(args)
		if err != nil {
			fatal(err)
		}
		defer app.Store.Close()
		if err := cli.HandleChat(app, args); err != nil {
			fatal(err)
		}

	case cli.CmdSessions:
		app, err := buildApp(args)
		if err != nil {
			fatal(err)
		}
		defer app.Store.Close()
		if err := cli.HandleSessions(app, args); err != nil {
			fatal(err)
		}

	case cli.CmdConfig:
		cfg, err := config.Load()
		if err != nil {
			fatal(err)
		}
		if err := cli.HandleConfig(cfg, args); err != nil {
			fatal(err)
		}

	case cli.CmdVersion:
		cli.HandleVersion()

	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// buildApp wires config, store, identity, gateway, and orchestrator.
func buildApp(args cli.Args) (*cli.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		cfg.Gemini.Model = args.Model
	}

	dbPath, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	email := args.Email
	if email == "" {
		email = cfg.Profile.Email
	}
	if email == "" {
		email = "operator@localhost"
	}
	provider := auth.NewLocalProvider(st)
	identity, err := provider.SignIn(context.Background(), email)
	if err != nil {
		st.Close()
		return nil, err
	}
	if cfg.Profile.Email != identity.Email {
		cfg.Profile.Email = identity.Email
		if err := config.Save(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: could not save config:", err)
		}
	}

	client := gemini.NewClient(cfg.Gemini.APIKey).
		WithModel(cfg.Gemini.Model).
		WithBaseURL(cfg.Gemini.BaseURL)

	orch := conversation.New(st, client, provider, cfg)

	return &cli.App{Config: cfg, Store: st, Client: client, Orch: orch}, nil
}

// runTUI launches the Bubble Tea interface.
func runTUI(args cli.Args) {
	if !cli.IsTTY() {
		fmt.Fprintln(os.Stderr, "Error: nexus requires an interactive terminal.")
		fmt.Fprintln(os.Stderr, "For scripted use, try: nexus chat, nexus sessions, nexus config")
		os.Exit(1)
	}

	app, err := buildApp(args)
	if err != nil {
		fatal(err)
	}
	defer app.Store.Close()

	identity, err := app.Orch.Identity()
	if err != nil {
		fatal(err)
	}

	toasts := components.NewToastManager()
	notify := chat.NewNotifier(toasts)
	app.Orch.WithNotifier(notify)

	ctrl, err := feed.NewController(app.Store, identity.ID, notify.Poke)
	if err != nil {
		fatal(err)
	}
	defer ctrl.Close()

	// External edits to the config file apply without a restart.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfgPath, err := config.ConfigPath(); err == nil {
		err := config.Watch(ctx, cfgPath, func(cfg *config.Config) {
			app.Config.Gemini = cfg.Gemini
			app.Client.SetAPIKey(cfg.Gemini.APIKey)
			notify.Info("Configuration reloaded")
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: config watch unavailable:", err)
		}
	}

	model := chat.New(app.Orch, ctrl, app.Client, app.Config, notify)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		fatal(err)
	}
}
