// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/jeranaias/rigrun-chat/internal/config"
)

// Output formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger bundles a configured logger with the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// Close closes the log file. It is safe on a logger without one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// New builds a logger from cfg. Without a file, output goes to stderr so it
// never interleaves with chat text on stdout.
func New(cfg config.LogConfig) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		out  io.Writer = os.Stderr
		file *os.File
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err = os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
	}

	return &Logger{
		Logger: build(out, cfg.Format, level, file == nil && isTerminal(os.Stderr)),
		file:   file,
	}, nil
}

// NewWriter builds a logger on an arbitrary writer. "auto" means JSON.
func NewWriter(w io.Writer, format, level string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	return build(w, format, lvl, false), nil
}

func build(w io.Writer, format string, level zerolog.Level, tty bool) zerolog.Logger {
	console := format == FormatConsole || (format == FormatAuto && tty)
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !tty}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel parses a level name case-insensitively. An empty name is
// "warn".
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
