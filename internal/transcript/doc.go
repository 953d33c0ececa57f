// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript is the state machine that folds routed stream actions
// into a chat transcript.
//
// A State value owns the messages, the chat id and the pending elicitation
// form. All mutations go through its methods; the zero-or-one streaming
// assistant message is always the last one. One assistant message moves
// through:
//
//	pending (empty, streaming)
//	  -> AppendContent*          streaming with content
//	  -> Finalize                settled
//	pending -> StreamFailed      removed
//	streaming -> StreamFailed    settled without finalize
//
// State is not safe for concurrent use; the session serializes access.
package transcript
