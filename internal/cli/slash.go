// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// slash.go - Slash commands available inside the interactive chat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// slashCommand describes one chat command for /help and suggestions.
type slashCommand struct {
	name    string
	aliases []string
	args    string
	help    string
}

var slashCommands = []slashCommand{
	{name: "help", aliases: []string{"h", "?"}, help: "Show this help"},
	{name: "new", help: "Start a new chat"},
	{name: "chats", aliases: []string{"ls"}, help: "List your chats"},
	{name: "open", args: "<id|n>", help: "Open a chat by id or /chats number"},
	{name: "status", help: "Show the current chat and session"},
	{name: "export", args: "[md|json] [path]", help: "Export the conversation to a file"},
	{name: "field", args: "<name>=<value>", help: "Fill in a field of the pending question"},
	{name: "submit", help: "Send the answers to the pending question"},
	{name: "accept", help: "Accept the pending question"},
	{name: "decline", help: "Decline the pending question"},
	{name: "cancel", help: "Cancel the pending question"},
	{name: "quit", aliases: []string{"exit", "q"}, help: "Leave the chat"},
}

// lookupSlash resolves a command name or alias.
func lookupSlash(name string) (slashCommand, bool) {
	name = strings.ToLower(name)
	for _, c := range slashCommands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return slashCommand{}, false
}

// parseSlash splits "/name rest" into its command name and argument text.
func parseSlash(input string) (name, arg string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, arg, _ = strings.Cut(input, " ")
	return name, strings.TrimSpace(arg)
}

// slash runs one slash command line.
func (r *repl) slash(ctx context.Context, input string) error {
	name, arg := parseSlash(input)
	cmd, ok := lookupSlash(name)
	if !ok {
		msg := fmt.Sprintf("unknown command /%s", name)
		if s := SuggestSlash(name); s != "" {
			msg += fmt.Sprintf(" (did you mean /%s?)", s)
		}
		return errors.New(msg)
	}
	r.log.Debug().Str("command", cmd.name).Msg("slash command")

	switch cmd.name {
	case "help":
		r.printSlashHelp()
	case "new":
		r.sess.NewChat()
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new chat."))
		r.printTranscript(r.sess.Snapshot())
	case "chats":
		return r.listChats(ctx)
	case "open":
		return r.openChat(ctx, arg)
	case "status":
		r.printStatus()
	case "export":
		return r.export(arg)
	case "field":
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return NewUsageError("usage: /field <name>=<value>")
		}
		return r.sess.SubmitElicitationField(key, strings.TrimSpace(value))
	case "submit":
		return r.submit(ctx)
	case "accept":
		return r.answer(ctx, elicitation.Accept)
	case "decline":
		return r.answer(ctx, elicitation.Decline)
	case "cancel":
		return r.answer(ctx, elicitation.Cancel)
	case "quit":
		return errQuit
	}
	return nil
}

// answer applies a tri-state answer to the pending question. A question
// asking only for that answer is sent immediately; otherwise the first
// boolean field is set and the user finishes with /submit.
func (r *repl) answer(ctx context.Context, token string) error {
	form := r.sess.ActiveElicitation()
	if form == nil {
		return session.ErrNoElicitation
	}

	name, ok := form.BooleanOnly()
	if !ok {
		schema := form.Request.RequestedSchema
		for _, n := range form.Prompts() {
			if p, _ := schema.Property(n); p.IsBoolean() {
				name, ok = n, true
				break
			}
		}
	}
	if !ok {
		return errors.New("the pending question has no yes/no field; use /field and /submit")
	}

	sent, err := r.sess.ChooseOption(ctx, name, token)
	if err != nil || sent {
		return r.afterTurn(ctx, err)
	}
	fmt.Fprintf(r.out, "Set %s to %s. Use /submit when ready.\n", name, token)
	return nil
}

func (r *repl) listChats(ctx context.Context) error {
	chats, err := r.lister.ListChats(ctx)
	if err != nil {
		return err
	}
	r.lastChats = chats
	if len(chats) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No chats yet."))
		return nil
	}

	current := r.sess.ChatID()
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for i, c := range chats {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s%d\t%s\t%s\n", marker, i+1,
			util.TruncateWidth(util.FirstLine(c.Label()), 48), c.ID)
	}
	tw.Flush()
	fmt.Fprintln(r.out, DimStyle.Render("Open one with /open <n>."))
	return nil
}

func (r *repl) openChat(ctx context.Context, arg string) error {
	if arg == "" {
		return NewUsageError("usage: /open <id|n>")
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.lastChats) {
		id = r.lastChats[n-1].ID
	}
	if err := r.sess.SwitchChat(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Opened chat "+id))
	r.printTranscript(r.sess.Snapshot())
	if form := r.sess.ActiveElicitation(); form != nil {
		return r.elicit(ctx, form)
	}
	return nil
}

func (r *repl) printStatus() {
	snap := r.sess.Snapshot()
	chat := snap.ChatID
	if chat == "" {
		chat = "(new)"
	}
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Chat:"), chat)
	fmt.Fprintf(r.out, "%s%d\n", RenderLabel("Messages:"), len(snap.Conversation()))
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Session:"), r.sess.ID())
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Duration:"), formatDuration(r.sess.Duration().Truncate(time.Second)))
	if form := r.sess.ActiveElicitation(); form != nil {
		pending := form.Request.Message
		if pending == "" {
			pending = form.Request.Name
		}
		fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Pending:"), util.TruncateWidth(pending, 60))
		if missing := form.Missing(); len(missing) > 0 {
			fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Needs:"), strings.Join(missing, ", "))
		}
	}
}

func (r *repl) export(arg string) error {
	fields := strings.Fields(arg)
	format := export.FormatMarkdown
	path := ""
	if len(fields) > 0 {
		format = fields[0]
	}
	if len(fields) > 1 {
		path = fields[1]
	}

	opts := export.DefaultOptions()
	exporter, err := export.ExporterFor(format, opts)
	if err != nil {
		return err
	}
	doc := export.FromSnapshot(r.sess.Snapshot(), "")
	if len(doc.Messages) == 0 {
		return errors.New("nothing to export yet")
	}
	written, err := export.ToFile(doc, exporter, opts, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Exported to "+written))
	return nil
}

func (r *repl) printSlashHelp() {
	fmt.Fprintln(r.out, TitleStyle.Render("Chat commands"))
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, c := range slashCommands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(tw, "  %s\t%s\n", CommandStyle.Render(usage), c.help)
	}
	tw.Flush()
	fmt.Fprintln(r.out, DimStyle.Render("Ctrl+C cancels a streaming reply. Ctrl+D exits."))
}
