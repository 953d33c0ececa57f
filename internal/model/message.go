// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole maps a backend messageType onto a Role. Matching ignores case.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser, nil
	case "ASSISTANT", "AI":
		return RoleAssistant, nil
	case "SYSTEM":
		return RoleSystem, nil
	}
	return "", fmt.Errorf("unknown message type %q", s)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in a transcript.
type Message struct {
	// Identity
	ID        string
	Role      Role
	Timestamp time.Time

	// Model is set when the message is finalized.
	Model string

	// RenderedText is computed from the text only when the message settles.
	RenderedText string

	IsStreaming bool
	IsEphemeral bool

	// PERFORMANCE: strings.Builder keeps streaming appends O(1)
	text strings.Builder
}

// NewMessage creates a settled message with the given identity.
func NewMessage(id string, role Role, text string) *Message {
	m := &Message{
		ID:        id,
		Role:      role,
		Timestamp: time.Now(),
	}
	m.text.WriteString(text)
	return m
}

// NewPlaceholder creates an empty streaming assistant message.
func NewPlaceholder(id string) *Message {
	return &Message{
		ID:          id,
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewEphemeral creates an assistant message that is discarded on the first
// real interaction (the welcome greeting).
func NewEphemeral(text string) *Message {
	m := NewMessage("welcome-"+newToken(), RoleAssistant, text)
	m.IsEphemeral = true
	return m
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Text returns the accumulated text.
func (m *Message) Text() string {
	return m.text.String()
}

// AppendText concatenates s onto the message text.
func (m *Message) AppendText(s string) {
	m.text.WriteString(s)
}

// SetText replaces the message text.
func (m *Message) SetText(s string) {
	m.text.Reset()
	m.text.WriteString(s)
}

// IsEmpty returns true if the message has no text at all.
func (m *Message) IsEmpty() bool {
	return m.text.Len() == 0
}

// IsBlank returns true if the message text is empty or whitespace only.
func (m *Message) IsBlank() bool {
	return strings.TrimSpace(m.text.String()) == ""
}

// View returns an immutable copy of the message.
func (m *Message) View() MessageView {
	return MessageView{
		ID:           m.ID,
		Role:         m.Role,
		Timestamp:    m.Timestamp,
		Text:         m.Text(),
		RenderedText: m.RenderedText,
		Model:        m.Model,
		IsStreaming:  m.IsStreaming,
		IsEphemeral:  m.IsEphemeral,
	}
}

// MessageView is a read-only copy of a Message.
type MessageView struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Timestamp    time.Time `json:"timestamp"`
	Text         string    `json:"text"`
	RenderedText string    `json:"renderedText,omitempty"`
	Model        string    `json:"model,omitempty"`
	IsStreaming  bool      `json:"isStreaming"`
	IsEphemeral  bool      `json:"isEphemeral,omitempty"`
}

// =============================================================================
// IDENTITIES
// =============================================================================

// NewTurnIDs returns a paired user/assistant identity for one turn.
// Both share the same token so a failed turn can be correlated.
func NewTurnIDs() (userID, assistantID string) {
	tok := newToken()
	return "user-" + tok, "ai-" + tok
}

// NewID returns a fresh identity with the given prefix.
func NewID(prefix string) string {
	return prefix + "-" + newToken()
}

// HistoryID returns the identity for a message loaded from history.
// Persisted ids are kept; a missing id falls back to chat id and position.
func HistoryID(chatID, persisted string, index int) string {
	if persisted != "" {
		return persisted
	}
	if chatID == "" {
		chatID = "new"
	}
	return fmt.Sprintf("%s-%d", chatID, index)
}

func newToken() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
