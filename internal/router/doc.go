// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router classifies decoded stream frames into transcript actions.
//
// Dispatch is by exact, case-sensitive event name:
//
//	chunk, message  -> AppendContent (cancels a pending elicitation)
//	done            -> Finalize (a malformed payload still finalizes)
//	elicitation     -> OpenElicitation (a malformed payload is ignored)
//	anything else   -> Ignore
//
// Unframed blocks (plain text without event or data lines) are treated as
// content. Parse failures are logged and never returned to the caller.
//
// # Usage
//
//	action := router.Route(frame, router.State{ElicitationPending: pending}, logger)
//	event := state.Apply(action)
package router
