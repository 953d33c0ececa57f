// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Stored chat commands for rigchat.
//
// Commands:
//   history <chatId>    Print a stored chat
//   chats               List your chats
//
// Examples:
//   rigchat history 6f1c...
//   rigchat history 6f1c... --format md -o chat.md
//   rigchat chats --json
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

const historyUsage = "rigchat history <chatId> [--format text|md|json] [-o file]"

// HandleHistory loads a stored chat and prints or exports it.
func HandleHistory(ctx context.Context, app *App, args Args, s Streams) error {
	chatID := args.ChatID
	if len(args.Positional) > 0 {
		chatID = args.Positional[0]
	}
	if chatID == "" {
		return ErrMissingArgument("chat id", historyUsage)
	}

	sess := app.NewSession("")
	if err := sess.SwitchChat(ctx, chatID); err != nil {
		return err
	}
	snap := sess.Snapshot()
	doc := export.FromSnapshot(snap, "")

	if args.JSON {
		return NewJSONResponse("history", doc).Write(s.Out)
	}

	format := strings.ToLower(args.Format)
	if format == "" || format == "text" {
		if args.Output == "" {
			writeTranscript(s.Out, snap, app.Markdown)
			return nil
		}
		// A file gets a real format; pick it from the extension.
		format = export.FormatMarkdown
		if strings.EqualFold(filepath.Ext(args.Output), ".json") {
			format = export.FormatJSON
		}
	}

	opts := export.DefaultOptions()
	exporter, err := export.ExporterFor(format, opts)
	if err != nil {
		return NewUsageError(err.Error())
	}

	if args.Output == "" {
		data, err := exporter.Export(doc)
		if err != nil {
			return err
		}
		_, err = s.Out.Write(data)
		return err
	}

	written, err := export.ToFile(doc, exporter, opts, args.Output)
	if err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Fprintf(s.Err, "%s %s (%d messages)\n", SuccessStyle.Render("Wrote"), written, len(doc.Messages))
	}
	return nil
}

// HandleChats lists the current user's chats.
func HandleChats(ctx context.Context, app *App, args Args, s Streams) error {
	chats, err := app.Client.ListChats(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("chats", chats).Write(s.Out)
	}
	if args.Quiet {
		for _, c := range chats {
			fmt.Fprintln(s.Out, c.ID)
		}
		return nil
	}
	if len(chats) == 0 {
		fmt.Fprintln(s.Out, DimStyle.Render("No chats yet."))
		return nil
	}

	now := time.Now()
	width := GetTerminalWidth()
	tw := tabwriter.NewWriter(s.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tMESSAGES\tTITLE")
	for _, c := range chats {
		updated := c.UpdatedAt
		if t, err := time.Parse(time.RFC3339, c.UpdatedAt); err == nil {
			updated = formatAge(t, now)
		} else if updated == "" {
			updated = "-"
		}
		count := "-"
		if len(c.ChatMessages) > 0 {
			count = strconv.Itoa(len(c.ChatMessages))
		}
		titleWidth := max(width-util.StringWidth(c.ID)-30, 20)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, updated, count,
			util.TruncateWidth(util.FirstLine(c.Label()), titleWidth))
	}
	return tw.Flush()
}
