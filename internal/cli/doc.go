// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for rigchat.
//
// It wires configuration, logging, the token provider and the backend client
// into a session, and drives that session from a terminal in interactive or
// one-shot mode.
//
// # Key Types
//
//   - Command: Enumeration of the CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - App: Components shared by the networked commands
//   - JSONResponse: Envelope for --json output
//
// # Usage
//
//	os.Exit(cli.Run(os.Args[1:]))
//
// # Commands Overview
//
//   - chat: Interactive chat with streaming replies (default)
//   - ask: Send one message and print the reply
//   - history: Print or export a stored chat
//   - chats: List the user's chats
//   - mock-server: Run the local development backend
//   - config: Show and edit the configuration file
//   - version: Print build information
//
// Commands that print data support --json.
package cli
