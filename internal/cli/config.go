// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for rigchat.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init                Write a default configuration file
//   get <key>           Print one value
//   set <key> <value>   Change one value in the configuration file
//   keys                List every settable key
//
// Examples:
//   rigchat config                             Show current config
//   rigchat config show --json                 Config in JSON format
//   rigchat config init --force                Overwrite with defaults
//   rigchat config set api.base_url https://chat.example.com/api
//   rigchat config set ui.markdown false
//   rigchat config get stream.resume_timeout_secs
//
// Secrets are masked in show and get output.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/config"
)

// configPathInfo is the payload of "rigchat config path --json".
type configPathInfo struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// configShowInfo is the payload of "rigchat config show --json".
type configShowInfo struct {
	Path   string         `json:"path,omitempty"`
	Config *config.Config `json:"config"`
}

// HandleConfig runs a config subcommand.
func HandleConfig(args Args, s Streams) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args, s)
	case "path":
		return handleConfigPath(args, s)
	case "init":
		return handleConfigInit(args, s)
	case "get":
		return handleConfigGet(args, s)
	case "set":
		return handleConfigSet(args, s)
	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(s.Out, k)
		}
		return nil
	}
	return NewUsageError(fmt.Sprintf("unknown config subcommand %q (want show, path, init, get, set or keys)", args.Subcommand))
}

// configFile returns the file a command reads or writes: --config, an
// existing file in the config directory, or the default TOML path.
func configFile(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	path, err := config.ExistingPath()
	if err != nil || path != "" {
		return path, err
	}
	return config.ConfigPath()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func handleConfigShow(args Args, s Streams) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	path, _ := configFile(args)
	if !fileExists(path) {
		path = ""
	}

	if args.JSON {
		return NewJSONResponse("config show", configShowInfo{Path: path, Config: cfg.Redacted()}).Write(s.Out)
	}

	fmt.Fprintln(s.Out, TitleStyle.Render("rigchat configuration"))
	if path != "" {
		fmt.Fprintf(s.Out, "%s%s\n", RenderLabel("File:"), path)
	} else {
		fmt.Fprintf(s.Out, "%s%s\n", RenderLabel("File:"), DimStyle.Render("(none, using defaults)"))
	}
	fmt.Fprintln(s.Out, RenderSeparator(40))
	fmt.Fprint(s.Out, cfg.String())
	return nil
}

func handleConfigPath(args Args, s Streams) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config path", configPathInfo{Path: path, Exists: fileExists(path)}).Write(s.Out)
	}
	fmt.Fprintln(s.Out, path)
	return nil
}

func handleConfigInit(args Args, s Streams) error {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if fileExists(path) && !args.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveFile(config.Default(), path); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config init", configPathInfo{Path: path, Exists: true}).Write(s.Out)
	}
	fmt.Fprintf(s.Out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

func handleConfigGet(args Args, s Streams) error {
	if len(args.Positional) != 1 {
		return ErrMissingArgument("key", "rigchat config get <key>")
	}
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	value, err := cfg.Redacted().Get(args.Positional[0])
	if err != nil {
		return NewUsageError(err.Error())
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{args.Positional[0]: value}).Write(s.Out)
	}
	fmt.Fprintln(s.Out, value)
	return nil
}

func handleConfigSet(args Args, s Streams) error {
	if len(args.Positional) < 2 {
		return ErrMissingArgument("key and value", "rigchat config set <key> <value>")
	}
	key := args.Positional[0]
	value := strings.Join(args.Positional[1:], " ")

	cfg, path, err := config.LoadForEdit(args.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewUsageError(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveFile(cfg, path); err != nil {
		return err
	}

	shown := value
	if isSecretKey(key) {
		shown = "[REDACTED]"
	}
	if args.JSON {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": shown, "path": path}).Write(s.Out)
	}
	fmt.Fprintf(s.Out, "%s %s = %s\n", SuccessStyle.Render("Set"), key, shown)
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".token")
}
