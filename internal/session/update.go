// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/jeranaias/rigrun-chat/internal/transcript"

// UpdateKind says what changed.
type UpdateKind int

const (
	// UpdateTurnStarted follows a user turn or elicitation answer.
	UpdateTurnStarted UpdateKind = iota
	// UpdateFrame carries the effect of one applied frame.
	UpdateFrame
	// UpdateStreamEnded follows the end of a stream. Err is ErrSuperseded
	// when it was cancelled.
	UpdateStreamEnded
	// UpdateStreamFailed carries a transport or read error.
	UpdateStreamFailed
	// UpdateReset follows a chat switch or a new chat.
	UpdateReset
)

// String returns the kind name.
func (k UpdateKind) String() string {
	switch k {
	case UpdateTurnStarted:
		return "turn-started"
	case UpdateFrame:
		return "frame"
	case UpdateStreamEnded:
		return "stream-ended"
	case UpdateStreamFailed:
		return "stream-failed"
	case UpdateReset:
		return "reset"
	}
	return "unknown"
}

// Update is delivered to the listener after each change. Listeners are
// called without the session lock held and may call back into the session.
type Update struct {
	Kind  UpdateKind
	Event transcript.Event
	Err   error
}

// Listener receives updates.
type Listener func(Update)
