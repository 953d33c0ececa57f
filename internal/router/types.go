// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
)

// =============================================================================
// DONE PAYLOAD
// =============================================================================

// DoneResponse is the payload of a "done" frame.
type DoneResponse struct {
	ID      string       `json:"id,omitempty"`
	Message *DoneMessage `json:"message,omitempty"`
}

// DoneMessage carries the authoritative final text and model.
type DoneMessage struct {
	Message *string `json:"message,omitempty"`
	Model   string  `json:"model,omitempty"`
}

// FinalText returns the payload text, or fallback when the payload has none.
func (r *DoneResponse) FinalText(fallback string) string {
	if r == nil || r.Message == nil || r.Message.Message == nil {
		return fallback
	}
	return *r.Message.Message
}

// FinalModel returns the payload model, or fallback when absent.
func (r *DoneResponse) FinalModel(fallback string) string {
	if r == nil || r.Message == nil || r.Message.Model == "" {
		return fallback
	}
	return r.Message.Model
}

// ChatID returns the server-assigned chat id, if any.
func (r *DoneResponse) ChatID() string {
	if r == nil {
		return ""
	}
	return r.ID
}

// ParseDone decodes a "done" frame payload. Only a JSON object is accepted.
func ParseDone(data string) (*DoneResponse, error) {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("decode done: payload is not an object")
	}
	var resp DoneResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, fmt.Errorf("decode done: %w", err)
	}
	return &resp, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// Action is the result of routing one frame.
type Action interface {
	Kind() string
}

// AppendContent appends text to the active assistant message.
type AppendContent struct {
	Text string

	// CancelElicitation is set when an elicitation was pending; the server
	// resumed generation without waiting for a reply.
	CancelElicitation bool
}

// Finalize settles the active assistant message. A nil Response means the
// payload could not be parsed; streaming state is still cleared.
type Finalize struct {
	Response *DoneResponse
}

// OpenElicitation stores a new elicitation request.
type OpenElicitation struct {
	Request *elicitation.Request
}

// Ignore leaves the transcript untouched.
type Ignore struct {
	Reason string
}

func (AppendContent) Kind() string   { return "append" }
func (Finalize) Kind() string        { return "finalize" }
func (OpenElicitation) Kind() string { return "elicitation" }
func (Ignore) Kind() string          { return "ignore" }
