// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is an ordered sequence of messages for one chat.
// ChatID is empty until the server assigns one.
type Transcript struct {
	ChatID   string
	Messages []*Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{Messages: make([]*Message, 0)}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds messages to the end of the transcript.
func (t *Transcript) Append(msgs ...*Message) {
	t.Messages = append(t.Messages, msgs...)
}

// Last returns the most recent message, or nil if empty.
func (t *Transcript) Last() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// RemoveLast drops the most recent message.
func (t *Transcript) RemoveLast() {
	if len(t.Messages) == 0 {
		return
	}
	t.Messages[len(t.Messages)-1] = nil
	t.Messages = t.Messages[:len(t.Messages)-1]
}

// DropEphemeral removes every ephemeral message, keeping order.
func (t *Transcript) DropEphemeral() {
	kept := t.Messages[:0]
	for _, m := range t.Messages {
		if !m.IsEphemeral {
			kept = append(kept, m)
		}
	}
	for i := len(kept); i < len(t.Messages); i++ {
		t.Messages[i] = nil
	}
	t.Messages = kept
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.Messages)
}

// StreamingCount returns how many messages are still streaming.
func (t *Transcript) StreamingCount() int {
	n := 0
	for _, m := range t.Messages {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

// Snapshot returns an immutable copy of the transcript.
func (t *Transcript) Snapshot() Snapshot {
	views := make([]MessageView, len(t.Messages))
	for i, m := range t.Messages {
		views[i] = m.View()
	}
	return Snapshot{ChatID: t.ChatID, Messages: views}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only copy of a Transcript.
type Snapshot struct {
	ChatID   string        `json:"chatId,omitempty"`
	Messages []MessageView `json:"messages"`
}

// Last returns the most recent message view.
func (s Snapshot) Last() (MessageView, bool) {
	if len(s.Messages) == 0 {
		return MessageView{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// StreamingCount returns how many messages are still streaming.
func (s Snapshot) StreamingCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

// Conversation returns the messages that are not ephemeral.
func (s Snapshot) Conversation() []MessageView {
	out := make([]MessageView, 0, len(s.Messages))
	for _, m := range s.Messages {
		if !m.IsEphemeral {
			out = append(out, m)
		}
	}
	return out
}
