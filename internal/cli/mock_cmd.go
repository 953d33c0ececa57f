// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// mock_cmd.go - Local development backend command for rigchat.
//
// Command: mock-server
//
// Runs an in-process backend that speaks the streaming chat protocol so
// the client can be tried without a real deployment. Replies echo the
// message; a message containing "confirm" triggers a confirmation request.
//
// Examples:
//   rigchat mock-server
//   rigchat mock-server --log-level info
//   RIGCHAT_MOCK_ADDR=127.0.0.1:9000 rigchat mock-server
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/mockserver"
)

const mockShutdownTimeout = 5 * time.Second

// HandleMockServer runs the mock backend until ctx is cancelled.
func HandleMockServer(ctx context.Context, args Args, s Streams) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	srv := mockserver.New(mockserver.Config{
		Addr:       cfg.Mock.Addr,
		Token:      cfg.Mock.Token,
		Model:      cfg.Mock.Model,
		ChunkSize:  cfg.Mock.ChunkSize,
		ChunkDelay: cfg.Mock.ChunkDelay(),
	}, logger.Logger)

	if !args.Quiet {
		fmt.Fprintf(s.Err, "%s http://%s\n", SuccessStyle.Render("Mock backend listening on"), srv.Addr())
		if cfg.Mock.Token != "" {
			fmt.Fprintln(s.Err, DimStyle.Render("Clients must send the token set in mock.token."))
		} else {
			fmt.Fprintln(s.Err, DimStyle.Render("Any bearer token is accepted."))
		}
		fmt.Fprintln(s.Err, DimStyle.Render("Press Ctrl+C to stop."))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), mockShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mock server shutdown: %w", err)
	}
	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
		return nil
	}
}
