// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management command handlers.
//
// Handles "nexus sessions list" and "nexus sessions delete ID".
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(app *App, args Args) error {
	identity, err := app.Orch.Identity()
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "list", "ls":
		sessions, err := app.Store.Sessions(identity.ID)
		if err != nil {
			return err
		}
		printSessionTable(sessions)
		return nil

	case "delete", "rm":
		if len(args.Raw) == 0 {
			return fmt.Errorf("usage: nexus sessions delete ID")
		}
		id := args.Raw[0]
		if err := app.Orch.DeleteSession(id); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Println("Deleted", id)
		}
		return nil

	default:
		fmt.Fprintf(os.Stderr, "Unknown sessions subcommand: %s\n", args.Subcommand)
		return fmt.Errorf("usage: nexus sessions [list|delete ID]")
	}
}

// printSessionTable prints sessions with full IDs for scripted deletion.
func printSessionTable(sessions []store.Session) {
	if len(sessions) == 0 {
		fmt.Println("No protocols stored.")
		return
	}
	for _, sess := range sessions {
		doc := "-"
		if sess.Doc != nil {
			doc = sess.Doc.Kind.String()
		}
		fmt.Printf("%s  %-9s %-19s %s\n",
			sess.ID, doc, sess.CreatedAt.Format("2006-01-02 15:04:05"), util.Flatten(sess.Title))
	}
}
