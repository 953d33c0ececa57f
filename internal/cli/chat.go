// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for rigchat.
//
// Command: chat (default)
//
// Examples:
//   rigchat                        Start a new chat
//   rigchat chat --chat 6f1c...    Continue a stored chat
//   rigchat --no-markdown          Plain streaming output
//
// Interactive commands are listed by /help. Ctrl+C cancels the reply in
// progress; Ctrl+C at the prompt or Ctrl+D exits.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/render"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

// errQuit ends the REPL.
var errQuit = errors.New("quit")

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line after showing a prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor and loads historyFile if it exists.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// Prompt reads a line of input. Non-empty lines are added to the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (c *ChatCLI) Close() error {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	return c.line.Close()
}

func historyPath(cfg *config.Config) string {
	if cfg.UI.HistoryFile != "" {
		return cfg.UI.HistoryFile
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatLister lists the user's chats.
type chatLister interface {
	ListChats(ctx context.Context) ([]transport.ChatSummary, error)
}

// HandleChat runs the interactive chat.
func HandleChat(app *App, args Args, s Streams) error {
	greeting := app.Config.UI.Greeting
	sess := app.NewSession(greeting)

	ctx := context.Background()
	if args.ChatID != "" {
		if err := sess.SwitchChat(ctx, args.ChatID); err != nil {
			return err
		}
	}

	in := NewChatCLI(historyPath(app.Config))
	defer in.Close()

	r := newREPL(sess, app.Client, in, s.Out, app.Markdown, args.Quiet, app.Log)

	// The first interrupt while a reply streams cancels it.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		for range sigCh {
			sess.Cancel()
		}
	}()

	return r.run(ctx)
}

// repl is the read-eval-print loop over one session.
type repl struct {
	sess     *session.Session
	lister   chatLister
	in       lineReader
	out      io.Writer
	printer  *streamPrinter
	markdown bool
	quiet    bool
	log      zerolog.Logger

	// lastChats is the most recent /chats listing, for /open <n>.
	lastChats []transport.ChatSummary
}

func newREPL(sess *session.Session, lister chatLister, in lineReader, out io.Writer, markdown, quiet bool, log zerolog.Logger) *repl {
	r := &repl{
		sess:     sess,
		lister:   lister,
		in:       in,
		out:      out,
		printer:  newStreamPrinter(out, markdown, quiet),
		markdown: markdown,
		quiet:    quiet,
		log:      log,
	}
	sess.SetListener(r.printer.Handle)
	return r
}

func (r *repl) run(ctx context.Context) error {
	if !r.quiet {
		r.printTranscript(r.sess.Snapshot())
		fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	}
	if form := r.sess.ActiveElicitation(); form != nil {
		r.reportError(r.elicit(ctx, form))
	}

	for {
		input, err := r.in.Prompt(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or end of input.
			fmt.Fprintln(r.out)
			r.printExitSummary()
			return nil
		}

		err = r.handleLine(ctx, input)
		if errors.Is(err, errQuit) {
			r.printExitSummary()
			return nil
		}
		r.reportError(err)
	}
}

func (r *repl) handleLine(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return nil
	case strings.HasPrefix(input, "/"):
		return r.slash(ctx, input)
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return errQuit
	}
	fmt.Fprintln(r.out)
	return r.afterTurn(ctx, r.sess.StartUserTurn(ctx, input))
}

// afterTurn finishes the output of a turn and opens any question the
// backend asked.
func (r *repl) afterTurn(ctx context.Context, err error) error {
	r.printer.Settle(r.sess.Snapshot())
	if errors.Is(err, session.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return err
	}
	if form := r.sess.ActiveElicitation(); form != nil {
		return r.elicit(ctx, form)
	}
	return nil
}

func (r *repl) reportError(err error) {
	if err == nil || errors.Is(err, errQuit) {
		return
	}
	fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(r.out, DimStyle.Render(hint))
	}
}

// =============================================================================
// ELICITATION PROMPTS
// =============================================================================

// elicit walks the user through a pending question. Leaving a prompt blank
// or typing a slash command keeps the question pending.
func (r *repl) elicit(ctx context.Context, form *elicitation.Form) error {
	req := form.Request
	question := req.Message
	if question == "" {
		question = req.Name
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, QuestionStyle.Render("? "+question))

	if name, ok := form.BooleanOnly(); ok {
		input, err := r.in.Prompt("[a]ccept / [d]ecline / [c]ancel: ")
		if err != nil {
			return nil
		}
		if strings.HasPrefix(strings.TrimSpace(input), "/") {
			return r.slash(ctx, input)
		}
		token, ok := parseChoice(input)
		if !ok {
			fmt.Fprintln(r.out, DimStyle.Render("Answer later with /accept, /decline or /cancel."))
			return nil
		}
		sent, err := r.sess.ChooseOption(ctx, name, token)
		if !sent && err == nil {
			return nil
		}
		return r.afterTurn(ctx, err)
	}

	schema := req.RequestedSchema
	for _, name := range form.Prompts() {
		prop, _ := schema.Property(name)
		label := prop.Label(name)
		if prop.Description != "" {
			fmt.Fprintln(r.out, DimStyle.Render("  "+prop.Description))
		}
		prompt := "  " + label
		if cur := form.Value(name); cur != "" {
			prompt += " [" + cur + "]"
		}
		if prop.IsBoolean() {
			prompt += " (a/d/c)"
		}

		input, err := r.in.Prompt(prompt + ": ")
		if err != nil {
			return nil
		}
		input = strings.TrimSpace(input)
		if strings.HasPrefix(input, "/") {
			return r.slash(ctx, input)
		}
		if input == "" {
			continue
		}
		if prop.IsBoolean() {
			token, ok := parseChoice(input)
			if !ok {
				return fmt.Errorf("%w: %q", session.ErrInvalidOption, input)
			}
			input = token
		}
		if err := r.sess.SubmitElicitationField(name, input); err != nil {
			return err
		}
	}
	return r.submit(ctx)
}

func (r *repl) submit(ctx context.Context) error {
	sent, err := r.sess.SubmitElicitation(ctx, nil)
	if !sent && err == nil {
		if form := r.sess.ActiveElicitation(); form != nil {
			fmt.Fprintf(r.out, "%s %s\n", WarningStyle.Render("Still needed:"), strings.Join(form.Missing(), ", "))
			fmt.Fprintln(r.out, DimStyle.Render("Use /field name=value, then /submit."))
			return nil
		}
		return session.ErrNoElicitation
	}
	return r.afterTurn(ctx, err)
}

// parseChoice maps a typed answer to a tri-state token.
func parseChoice(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "a", "accept", "y", "yes", "true":
		return elicitation.Accept, true
	case "d", "decline", "n", "no", "false":
		return elicitation.Decline, true
	case "c", "cancel":
		return elicitation.Cancel, true
	}
	return "", false
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printTranscript(snap model.Snapshot) {
	writeTranscript(r.out, snap, r.markdown)
}

// writeTranscript prints every message of snap under its role label.
func writeTranscript(w io.Writer, snap model.Snapshot, markdown bool) {
	for _, m := range snap.Messages {
		if m.IsEphemeral {
			fmt.Fprintln(w, AssistantStyle.Render(m.Text))
			continue
		}
		fmt.Fprintln(w, RoleLabel(m.Role))
		text := m.Text
		if m.Role == model.RoleAssistant {
			text = render.Display(m.Text)
			if markdown && m.RenderedText != "" {
				text = m.RenderedText
			}
		}
		fmt.Fprintln(w, text)
		fmt.Fprintln(w)
	}
}

func (r *repl) printExitSummary() {
	if r.quiet {
		return
	}
	snap := r.sess.Snapshot()
	fmt.Fprintln(r.out, RenderSeparator(40))
	fmt.Fprintf(r.out, "%s%d\n", RenderLabel("Messages:"), len(snap.Conversation()))
	if snap.ChatID != "" {
		fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Chat:"), snap.ChatID)
	}
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Duration:"), formatDuration(r.sess.Duration()))
}
