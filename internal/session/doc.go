// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat: it sends user turns, consumes the
// response stream and answers elicitations, feeding every frame through the
// router into the transcript reducer.
//
// # Key Types
//
//   - Session: the controller used by the CLI
//   - Transport: the backend calls a session needs
//   - Update: what a listener is told after each change
//
// # Usage
//
//	s := session.New(client, session.DefaultConfig(), log)
//	s.SetListener(func(u session.Update) { ... })
//	if err := s.StartUserTurn(ctx, "hello"); err != nil {
//	    // show the error
//	}
//	if form := s.ActiveElicitation(); form != nil {
//	    s.SubmitElicitationField("confirm", "accept")
//	    s.SubmitElicitation(ctx, nil)
//	}
//
// # Concurrency
//
// All methods are safe for concurrent use. Each stream is tied to the
// generation it was started under; a newer turn, a chat switch or Cancel
// bumps the generation and frames from the older stream are dropped.
package session
