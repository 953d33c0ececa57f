// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/render"
	"github.com/jeranaias/rigrun-chat/internal/router"
)

// DefaultGreeting is the ephemeral welcome shown in a new chat.
const DefaultGreeting = "Hi! How can I assist you today?"

// =============================================================================
// STATE
// =============================================================================

// State is the explicit reducer state for one chat.
type State struct {
	Transcript *model.Transcript

	// Form is the pending elicitation, nil when none.
	Form *elicitation.Form

	greeting string
	renderer render.Renderer
}

// New creates a state holding only the greeting. A nil renderer renders
// plain text.
func New(renderer render.Renderer, greeting string) *State {
	if renderer == nil {
		renderer = render.Plain{}
	}
	s := &State{greeting: greeting, renderer: renderer}
	s.Reset()
	return s
}

// Reset starts an empty chat with the greeting and no chat id.
func (s *State) Reset() {
	s.Transcript = model.NewTranscript()
	s.Form = nil
	if s.greeting != "" {
		s.Transcript.Append(model.NewEphemeral(s.greeting))
	}
}

// ChatID returns the bound chat id, empty for a new chat.
func (s *State) ChatID() string {
	return s.Transcript.ChatID
}

// RouterState returns what the frame router needs to know.
func (s *State) RouterState() router.State {
	return router.State{
		ElicitationPending: s.Form != nil,
		ChatID:             s.Transcript.ChatID,
	}
}

// Snapshot returns an immutable copy of the transcript.
func (s *State) Snapshot() model.Snapshot {
	return s.Transcript.Snapshot()
}

// =============================================================================
// FRAME-DRIVEN TRANSITIONS
// =============================================================================

// AppendContent concatenates text onto the last message when it is an
// assistant message. It reports whether anything changed.
func (s *State) AppendContent(text string) bool {
	last := s.Transcript.Last()
	if last == nil || last.Role != model.RoleAssistant {
		return false
	}
	last.AppendText(text)
	return true
}

// Finalize applies the authoritative final text and model to the last
// assistant message and ends its streaming. A new chat adopts the
// response's chat id; an already bound id is never overwritten.
// A nil response settles the message without changing its content.
func (s *State) Finalize(resp *router.DoneResponse) bool {
	changed := false
	if last := s.Transcript.Last(); last != nil && last.Role == model.RoleAssistant {
		last.SetText(resp.FinalText(last.Text()))
		last.Model = resp.FinalModel(last.Model)
		last.RenderedText = s.renderer.Render(last.Text())
		last.IsStreaming = false
		changed = true
	}
	if s.Transcript.ChatID == "" && resp.ChatID() != "" {
		s.Transcript.ChatID = resp.ChatID()
		changed = true
	}
	return changed
}

// OpenElicitation stores req as the pending elicitation with fresh field
// values. An empty streaming placeholder at the end is dropped.
func (s *State) OpenElicitation(req *elicitation.Request) {
	if last := s.Transcript.Last(); last != nil &&
		last.Role == model.RoleAssistant && last.IsStreaming && last.IsBlank() {
		s.Transcript.RemoveLast()
	}
	s.Form = elicitation.NewForm(req, s.Transcript.ChatID)
}

// =============================================================================
// CALLER-DRIVEN TRANSITIONS
// =============================================================================

// StartUserTurn drops ephemeral messages and appends the user's message
// followed by an empty streaming assistant placeholder. Any message still
// streaming from an abandoned stream is settled first.
func (s *State) StartUserTurn(text string) (userID, assistantID string) {
	s.settleStreaming()
	s.Transcript.DropEphemeral()

	userID, assistantID = model.NewTurnIDs()
	s.Transcript.Append(
		model.NewMessage(userID, model.RoleUser, text),
		model.NewPlaceholder(assistantID),
	)
	return userID, assistantID
}

// BeginElicitationResponse records an elicitation answer: the prompt as a
// system message, the summary as the user's message and a new placeholder.
func (s *State) BeginElicitationResponse(prompt, summary string) {
	s.settleStreaming()
	s.Transcript.DropEphemeral()

	userID, assistantID := model.NewTurnIDs()
	s.Transcript.Append(
		model.NewMessage(model.NewID("system"), model.RoleSystem, prompt),
		model.NewMessage(userID, model.RoleUser, summary),
		model.NewPlaceholder(assistantID),
	)
}

// StreamFailed removes an assistant placeholder that never received text,
// or settles one that did. Earlier messages are untouched. err is returned
// unchanged for the caller to surface.
func (s *State) StreamFailed(err error) error {
	last := s.Transcript.Last()
	if last == nil || last.Role != model.RoleAssistant {
		return err
	}
	if last.IsEmpty() {
		s.Transcript.RemoveLast()
		return err
	}
	s.settle(last)
	return err
}

// EndOfStream settles the active message when a stream closes without a
// done frame. It reports whether anything changed.
func (s *State) EndOfStream() bool {
	last := s.Transcript.Last()
	if last == nil || last.Role != model.RoleAssistant || !last.IsStreaming {
		return false
	}
	if last.IsEmpty() {
		s.Transcript.RemoveLast()
		return true
	}
	s.settle(last)
	return true
}

// ClearElicitation drops the pending form if it is f. A nil f clears any.
func (s *State) ClearElicitation(f *elicitation.Form) bool {
	if s.Form == nil || (f != nil && s.Form != f) {
		return false
	}
	s.Form = nil
	return true
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryEntry is one stored message used to seed a transcript.
type HistoryEntry struct {
	ID    string
	Role  model.Role
	Text  string
	Model string
}

// Seed replaces the transcript with stored history for chatID. An empty
// history shows the greeting instead.
func (s *State) Seed(chatID string, entries []HistoryEntry) {
	s.Reset()
	s.Transcript.ChatID = chatID
	if len(entries) == 0 {
		return
	}

	s.Transcript.DropEphemeral()
	for i, e := range entries {
		m := model.NewMessage(model.HistoryID(chatID, e.ID, i), e.Role, e.Text)
		m.Model = e.Model
		m.RenderedText = s.renderer.Render(e.Text)
		s.Transcript.Append(m)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *State) settle(m *model.Message) {
	m.IsStreaming = false
	m.RenderedText = s.renderer.Render(m.Text())
}

// settleStreaming ends every streaming message, removing empty ones.
func (s *State) settleStreaming() {
	if s.Transcript.StreamingCount() == 0 {
		return
	}
	kept := make([]*model.Message, 0, len(s.Transcript.Messages))
	for _, m := range s.Transcript.Messages {
		if m.IsStreaming {
			if m.IsEmpty() {
				continue
			}
			s.settle(m)
		}
		kept = append(kept, m)
	}
	s.Transcript.Messages = kept
}
