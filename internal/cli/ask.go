// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single message command handler for rigchat.
//
// Handles the "rigchat ask" command which sends one message and streams
// the reply to stdout.
//
// Command: ask [message]
//
// Examples:
//   rigchat ask "What is the capital of France?"
//   echo "summarize this" | rigchat ask
//   rigchat ask --chat 6f1c... "and in French?"
//   rigchat ask --answer accept "please confirm the deploy"
//   rigchat ask --json "hello"
//
// Flags:
//   --chat ID        Continue an existing chat
//   --answer TOKEN   Answer a confirmation request: accept, decline or cancel
//   --json           Output the reply as JSON
//   -q, --quiet      Print only the reply text
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/render"
)

const askUsage = `rigchat ask [--chat ID] [--answer accept|decline|cancel] "message"`

// askResult is the payload of "rigchat ask --json".
type askResult struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// HandleAsk sends one message and prints the reply. A confirmation request
// from the backend is answered with --answer or reported as ErrNeedsInput.
func HandleAsk(ctx context.Context, app *App, args Args, s Streams) error {
	message, err := askMessage(args, s.In)
	if err != nil {
		return err
	}

	answer := ""
	if args.Answer != "" {
		token, ok := parseChoice(args.Answer)
		if !ok {
			return NewUsageError(fmt.Sprintf("invalid --answer %q (want accept, decline or cancel)", args.Answer))
		}
		answer = token
	}

	sess := app.NewSession("")
	if args.ChatID != "" {
		if err := sess.SwitchChat(ctx, args.ChatID); err != nil {
			return err
		}
	}

	out := s.Out
	if args.JSON {
		out = io.Discard
	}
	printer := newStreamPrinter(out, app.Markdown && !args.JSON, args.Quiet)
	sess.SetListener(printer.Handle)

	err = sess.StartUserTurn(ctx, message)
	for {
		printer.Settle(sess.Snapshot())
		if err != nil {
			return err
		}

		form := sess.ActiveElicitation()
		if form == nil {
			break
		}
		name, boolOnly := form.BooleanOnly()
		if answer == "" || !boolOnly {
			question := form.Request.Message
			if question == "" {
				question = form.Request.Name
			}
			if !args.JSON {
				fmt.Fprintln(s.Err, QuestionStyle.Render("? "+question))
			}
			return fmt.Errorf("%w: %s", ErrNeedsInput, question)
		}

		app.Log.Debug().Str("field", name).Str("answer", answer).Msg("answering confirmation")
		var sent bool
		sent, err = sess.ChooseOption(ctx, name, answer)
		if !sent && err == nil {
			return ErrNeedsInput
		}
		// One answer per invocation.
		answer = ""
	}

	if !args.JSON {
		return nil
	}
	snap := sess.Snapshot()
	result := askResult{ChatID: snap.ChatID}
	if last, ok := snap.Last(); ok && last.Role == model.RoleAssistant {
		result.Message = render.Display(last.Text)
		result.Model = last.Model
	}
	return NewJSONResponse("ask", result).Write(s.Out)
}

// askMessage returns the positional message, or piped stdin when no
// message was given.
func askMessage(args Args, in io.Reader) (string, error) {
	if msg := args.Message(); msg != "" {
		return msg, nil
	}
	if in != nil && !IsTTY() {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return msg, nil
		}
	}
	return "", ErrMissingArgument("message", askUsage)
}
