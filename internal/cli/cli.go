// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for rigchat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
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
	CmdChat Command = iota
	CmdAsk
	CmdHistory
	CmdChats
	CmdMockServer
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"chat":        CmdChat,
	"ask":         CmdAsk,
	"history":     CmdHistory,
	"show":        CmdHistory,
	"chats":       CmdChats,
	"ls":          CmdChats,
	"mock-server": CmdMockServer,
	"mock":        CmdMockServer,
	"config":      CmdConfig,
	"doctor":      CmdDoctor,
	"diag":        CmdDoctor,
	"version":     CmdVersion,
	"help":        CmdHelp,
}

// String returns the primary command name.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdHistory:
		return "history"
	case CmdChats:
		return "chats"
	case CmdMockServer:
		return "mock-server"
	case CmdConfig:
		return "config"
	case CmdDoctor:
		return "doctor"
	case CmdVersion:
		return "version"
	}
	return "help"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	APIURL     string
	Token      string
	LogLevel   string
	NoMarkdown bool
	ChatID     string
	JSON       bool
	Quiet      bool

	// ask
	Answer string

	// history
	Format string
	Output string

	// config init
	Force bool

	// Subcommand is the first positional argument of "config" and "doctor".
	Subcommand string

	// Positional holds the remaining arguments.
	Positional []string

	changed map[string]bool
}

// Changed reports whether the named flag was given on the command line.
func (a Args) Changed(name string) bool {
	return a.changed[name]
}

// Message joins the positional arguments into one message.
func (a Args) Message() string {
	return strings.TrimSpace(strings.Join(a.Positional, " "))
}

const usageText = `rigchat - terminal client for a streaming chat backend

Usage:
  rigchat [chat]                 Interactive chat (default)
  rigchat ask "message"          Send one message and print the reply
  rigchat history <chatId>       Print a stored chat
  rigchat chats                  List your chats
  rigchat mock-server            Run the local development backend
  rigchat config [show|path|init|get|set|keys]
  rigchat doctor [fix]           Check config, credentials and backend
  rigchat version

Examples:
  rigchat --api-url https://chat.example.com/api --token $TOKEN
  rigchat ask --chat 6f1c... "and in French?"
  rigchat ask --answer accept "please confirm the deploy"
  rigchat history 6f1c... --format json -o chat.json
  rigchat config set ui.markdown false

Chat commands:
  /help  /new  /open <id>  /chats  /status  /export <md|json> [path]
  /field name=value  /submit  /accept  /decline  /cancel  /quit

Flags:
`

func newFlagSet(args *Args) *pflag.FlagSet {
	fs := pflag.NewFlagSet("rigchat", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&args.ConfigPath, "config", "c", "", "config file (.toml, .json or .yaml)")
	fs.StringVar(&args.APIURL, "api-url", "", "backend base URL")
	fs.StringVar(&args.Token, "token", "", "bearer token")
	fs.StringVar(&args.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&args.NoMarkdown, "no-markdown", false, "print replies without markdown styling")
	fs.StringVar(&args.ChatID, "chat", "", "continue an existing chat")
	fs.BoolVar(&args.JSON, "json", false, "machine-readable output")
	fs.BoolVarP(&args.Quiet, "quiet", "q", false, "minimal output")
	fs.StringVar(&args.Answer, "answer", "", "answer to a confirmation request in ask: accept, decline or cancel")
	fs.StringVarP(&args.Format, "format", "f", "text", "history format: text, md or json")
	fs.StringVarP(&args.Output, "output", "o", "", "write history to a file")
	fs.BoolVar(&args.Force, "force", false, "overwrite an existing config file")
	fs.BoolP("help", "h", false, "show help")
	fs.BoolP("version", "V", false, "show version")
	return fs
}

// Parse parses command-line arguments into a command and its Args.
func Parse(argv []string) (Command, Args, error) {
	args := Args{changed: make(map[string]bool)}
	fs := newFlagSet(&args)

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CmdHelp, args, nil
		}
		return CmdHelp, args, NewUsageError(err.Error())
	}
	fs.Visit(func(f *pflag.Flag) { args.changed[f.Name] = true })

	if help, _ := fs.GetBool("help"); help {
		return CmdHelp, args, nil
	}
	if version, _ := fs.GetBool("version"); version {
		return CmdVersion, args, nil
	}

	rest := fs.Args()
	cmd := CmdChat
	if len(rest) > 0 {
		c, ok := commandNames[strings.ToLower(rest[0])]
		if !ok {
			if s := SuggestCommand(rest[0]); s != "" {
				return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown command %q (did you mean %q?)", rest[0], s))
			}
			return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown command %q", rest[0]))
		}
		cmd = c
		rest = rest[1:]
	}

	if (cmd == CmdConfig || cmd == CmdDoctor) && len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
		rest = rest[1:]
	}
	args.Positional = rest
	return cmd, args, nil
}

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Run parses argv, runs the command and returns the process exit code.
func Run(argv []string) int {
	streams := StdStreams()

	cmd, args, err := Parse(argv)
	if err != nil {
		DisplayError(streams.Err, err, args.JSON)
		fmt.Fprintln(streams.Err, DimStyle.Render("Run 'rigchat --help' for usage."))
		return GetExitCode(err)
	}

	// The REPL handles interrupts itself.
	ctx := context.Background()
	if cmd != CmdChat {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if err := Execute(ctx, cmd, args, streams); err != nil {
		DisplayError(streams.Err, err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// Execute runs a parsed command.
func Execute(ctx context.Context, cmd Command, args Args, s Streams) error {
	switch cmd {
	case CmdHelp:
		printUsage(s.Out)
		return nil
	case CmdVersion:
		return handleVersion(args, s)
	case CmdConfig:
		return HandleConfig(args, s)
	case CmdMockServer:
		return HandleMockServer(ctx, args, s)
	case CmdDoctor:
		return HandleDoctor(ctx, args, s)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case CmdAsk:
		return HandleAsk(ctx, app, args, s)
	case CmdHistory:
		return HandleHistory(ctx, app, args, s)
	case CmdChats:
		return HandleChats(ctx, app, args, s)
	default:
		return HandleChat(app, args, s)
	}
}

func printUsage(w io.Writer) {
	var args Args
	fs := newFlagSet(&args)
	fmt.Fprint(w, usageText)
	fmt.Fprint(w, fs.FlagUsages())
}

// versionInfo is the payload of "rigchat version --json".
type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func handleVersion(args Args, s Streams) error {
	info := versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if args.JSON {
		return NewJSONResponse("version", info).Write(s.Out)
	}
	fmt.Fprintf(s.Out, "rigchat %s\n", info.Version)
	if !args.Quiet {
		fmt.Fprintf(s.Out, "  commit:  %s\n  built:   %s\n  go:      %s (%s)\n",
			info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
	}
	return nil
}
