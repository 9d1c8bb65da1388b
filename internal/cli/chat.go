// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive REPL command handler for the nexus CLI.
//
// Handles the "nexus chat" command: a line-oriented conversation loop with
// history, markdown-rendered replies, and slash commands.
//
// Command: chat
//
// Examples:
//   nexus chat                 Start a fresh protocol
//   nexus chat notes.txt       Start a protocol grounded in notes.txt
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new protocol
//   /open PATH          Decode a document into a new protocol
//   /list, /ls          List stored protocols
//   /switch N           Switch to protocol N from /list
//   /settings KEY       Save a new API key
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/gemini"
	"github.com/jeranaias/nexus-tui/internal/store"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// styled applies st only when colored output is enabled, so NO_COLOR, dumb
// terminals, and pipes get plain text.
func styled(st lipgloss.Style, s string) string {
	if !ColorEnabled() {
		return s
	}
	return st.Render(s)
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var markdownRenderer *glamour.TermRenderer

func init() {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(GetTerminalWidth()),
	}
	if ColorEnabled() {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}

	var err error
	markdownRenderer, err = glamour.NewTermRenderer(opts...)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display, falling back
// to the raw text when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil || !IsStdoutTTY() {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the interactive loop.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history stored under the config dir.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// NOTIFIER
// =============================================================================

// PrintNotifier writes orchestrator notifications to the terminal.
type PrintNotifier struct {
	Quiet bool
	Color bool
	Out   io.Writer
	Err   io.Writer
}

// NewPrintNotifier builds a notifier for the standard streams, with color
// resolved from the environment.
func NewPrintNotifier(quiet bool) PrintNotifier {
	return PrintNotifier{Quiet: quiet, Color: ColorEnabled(), Out: os.Stdout, Err: os.Stderr}
}

func (n PrintNotifier) Success(msg string) {
	if n.Quiet {
		return
	}
	if n.Color {
		fmt.Fprintln(n.Out, styles.RenderSuccess(msg))
		return
	}
	fmt.Fprintln(n.Out, msg)
}

func (n PrintNotifier) Error(msg string) {
	if n.Color {
		fmt.Fprintln(n.Err, styles.RenderError(msg))
		return
	}
	fmt.Fprintln(n.Err, msg)
}

func (n PrintNotifier) Info(msg string) {
	if n.Quiet {
		return
	}
	if n.Color {
		fmt.Fprintln(n.Out, styles.RenderInfo(msg))
		return
	}
	fmt.Fprintln(n.Out, msg)
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// App bundles the wired services the command handlers operate on.
type App struct {
	Config *config.Config
	Store  *store.Store
	Client *gemini.Client
	Orch   *conversation.Orchestrator
}

// HandleChat runs the interactive REPL.
func HandleChat(app *App, args Args) error {
	notify := NewPrintNotifier(args.Quiet)
	app.Orch.WithNotifier(notify)

	identity, err := app.Orch.Identity()
	if err != nil {
		return err
	}

	cli := NewChatCLI()
	defer cli.Close()

	if !args.Quiet {
		fmt.Println(styled(welcomeStyle, "NEXUS") + styled(infoStyle, "  interactive protocol"))
		fmt.Println(styled(infoStyle, "Type /help for commands, Ctrl+D to exit."))
		fmt.Println()
	}

	// Every run opens with a protocol and its opening turn.
	ctx := context.Background()
	if args.File != "" {
		if _, err := app.Orch.CreateSessionFromFile(ctx, args.File); err != nil {
			return err
		}
	} else {
		if _, err := app.Orch.CreateSession(ctx, nil); err != nil {
			return err
		}
	}
	printLastReply(app, identity.ID)

	for {
		input, err := cli.ReadInput(styled(promptStyle, "nexus> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println(styled(infoStyle, "(Ctrl+D to exit)"))
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			quit, err := handleSlashCommand(app, identity.ID, trimmed)
			if err != nil {
				notify.Error(err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		if err := app.Orch.SendMessage(ctx, input); err != nil {
			if errors.Is(err, conversation.ErrNotConfigured) {
				fmt.Println(styled(warningStyle, "No API key configured. Set one with /settings KEY or NEXUS_GEMINI_API_KEY."))
				continue
			}
			continue // already surfaced through the notifier
		}
		printLastReply(app, identity.ID)
	}
}

// handleSlashCommand dispatches one /command. Returns quit=true on /quit.
func handleSlashCommand(app *App, ownerID, input string) (bool, error) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	ctx := context.Background()

	switch cmd {
	case "/help", "/h":
		fmt.Println(styled(infoStyle, `  /new             start a new protocol
  /open PATH       decode a document into a new protocol
  /list, /ls       list stored protocols
  /switch N        switch to protocol N
  /settings KEY    save a new API key
  /quit, /q        exit`))
		return false, nil

	case "/new":
		if _, err := app.Orch.CreateSession(ctx, nil); err != nil {
			return false, err
		}
		printLastReply(app, ownerID)
		return false, nil

	case "/open":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /open PATH")
		}
		if _, err := app.Orch.CreateSessionFromFile(ctx, parts[1]); err != nil {
			return false, err
		}
		printLastReply(app, ownerID)
		return false, nil

	case "/list", "/ls":
		sessions, err := app.Store.Sessions(ownerID)
		if err != nil {
			return false, err
		}
		printSessionList(sessions, app.Orch.ActiveSession())
		return false, nil

	case "/switch":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /switch N")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, fmt.Errorf("not a number: %s", parts[1])
		}
		sessions, err := app.Store.Sessions(ownerID)
		if err != nil {
			return false, err
		}
		if n < 1 || n > len(sessions) {
			return false, fmt.Errorf("no protocol %d", n)
		}
		app.Orch.SetActiveSession(sessions[n-1].ID)
		fmt.Println(styled(infoStyle, "Switched to "+sessions[n-1].Title))
		return false, nil

	case "/settings":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /settings KEY")
		}
		return false, app.Orch.SaveSettings(parts[1], "")

	case "/quit", "/q", "/exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", cmd)
	}
}

// printLastReply prints the newest model-role message of the active session.
func printLastReply(app *App, ownerID string) {
	active := app.Orch.ActiveSession()
	if active == "" {
		return
	}
	msgs, err := app.Store.Messages(ownerID, active)
	if err != nil {
		return
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == store.RoleModel {
			fmt.Print(renderMarkdown(msgs[i].Text))
			if !strings.HasSuffix(msgs[i].Text, "\n") {
				fmt.Println()
			}
			return
		}
	}
}

// printSessionList prints the stored sessions, newest first.
func printSessionList(sessions []store.Session, activeID string) {
	if len(sessions) == 0 {
		fmt.Println(styled(infoStyle, "No protocols stored."))
		return
	}
	for i, sess := range sessions {
		marker := " "
		if sess.ID == activeID {
			marker = "*"
		}
		doc := ""
		if sess.Doc != nil {
			doc = "  [" + sess.Doc.Kind.String() + "]"
		}
		title := util.TruncateRunes(util.Flatten(sess.Title), 48)
		fmt.Printf("%s %2d. %s%s  %s\n", marker, i+1, title, doc,
			styled(infoStyle, sess.CreatedAt.Format("2006-01-02 15:04")))
	}
}
