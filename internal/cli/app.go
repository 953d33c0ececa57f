// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of configuration, logging, auth and transport.
package cli

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-chat/internal/auth"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/render"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

// App holds the components shared by the networked commands.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Tokens   auth.Provider
	Client   *transport.Client
	Renderer render.Renderer

	// Markdown is true when replies are rendered through glamour.
	Markdown bool

	logger *logging.Logger
}

// NewApp loads configuration, applies flag overrides and builds the
// backend client.
func NewApp(args Args) (*App, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	log := logger.With().Str("version", Version).Logger()

	tokens, err := auth.New(auth.Options{
		Backend:       cfg.Auth.Backend,
		Token:         cfg.Auth.Token,
		TokenFile:     cfg.Auth.TokenFile,
		UserID:        cfg.Auth.UserID,
		MaxFailures:   cfg.Auth.MaxFailures,
		BlockDuration: cfg.Auth.BlockDuration(),
	}, log)
	if err != nil {
		logger.Close()
		return nil, err
	}

	client := transport.NewClient(cfg.API.BaseURL, tokens, log).
		WithResumeTimeout(cfg.Stream.ResumeTimeout()).
		WithRequestTimeout(cfg.API.RequestTimeout())

	markdown := cfg.UI.Markdown && IsStdoutTTY()
	wrap := cfg.UI.WordWrap
	if wrap == 0 {
		wrap = GetTerminalWidth() - 4
	}

	log.Debug().
		Str("api", cfg.API.BaseURL).
		Str("auth", cfg.Auth.Backend).
		Bool("markdown", markdown).
		Msg("client ready")

	return &App{
		Config:   cfg,
		Log:      log,
		Tokens:   tokens,
		Client:   client,
		Renderer: render.New(markdown, cfg.UI.Theme, wrap),
		Markdown: markdown,
		logger:   logger,
	}, nil
}

// LoadConfig loads the config file named by --config, or the default one,
// and applies flag overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFile(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	applyFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides config values with explicitly given flags.
func applyFlags(cfg *config.Config, args Args) {
	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
	}
	if args.Token != "" {
		cfg.Auth.Token = args.Token
		cfg.Auth.Backend = auth.BackendStatic
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.NoMarkdown {
		cfg.UI.Markdown = false
	}
}

// NewSession creates a chat session. An empty greeting omits the welcome
// message.
func (a *App) NewSession(greeting string) *session.Session {
	return session.New(a.Client, session.Config{
		Greeting:       greeting,
		Renderer:       a.Renderer,
		ReadBufferSize: a.Config.Stream.ReadBufferSize(),
	}, a.Log)
}

// Close releases the token provider and the log file.
func (a *App) Close() error {
	if c, ok := a.Tokens.(io.Closer); ok {
		c.Close()
	}
	return a.logger.Close()
}
