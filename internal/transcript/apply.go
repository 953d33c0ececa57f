// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/router"
)

// EventKind says what an applied action changed.
type EventKind int

const (
	EventNone EventKind = iota
	EventContent
	EventFinalized
	EventElicitationOpened
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventFinalized:
		return "finalized"
	case EventElicitationOpened:
		return "elicitation"
	default:
		return "none"
	}
}

// Event describes the effect of one Apply call for listeners.
type Event struct {
	Kind EventKind

	// Text is the appended text for EventContent.
	Text string

	// Message is the settled message for EventFinalized.
	Message *model.MessageView

	// Request is set for EventElicitationOpened.
	Request *elicitation.Request

	// ElicitationCancelled is set when the action discarded a pending form.
	ElicitationCancelled bool

	// ChatIDAdopted carries a chat id bound by this action.
	ChatIDAdopted string
}

// Apply performs one routed action.
func (s *State) Apply(a router.Action) Event {
	switch a := a.(type) {
	case router.AppendContent:
		ev := Event{Kind: EventContent, Text: a.Text}
		ev.ElicitationCancelled = s.ClearElicitation(nil)
		if !s.AppendContent(a.Text) {
			ev.Kind = EventNone
		}
		return ev

	case router.Finalize:
		before := s.Transcript.ChatID
		ev := Event{Kind: EventFinalized}
		ev.ElicitationCancelled = s.ClearElicitation(nil)
		s.Finalize(a.Response)
		if last := s.Transcript.Last(); last != nil && last.Role == model.RoleAssistant {
			v := last.View()
			ev.Message = &v
		}
		if before == "" && s.Transcript.ChatID != "" {
			ev.ChatIDAdopted = s.Transcript.ChatID
		}
		return ev

	case router.OpenElicitation:
		s.OpenElicitation(a.Request)
		return Event{Kind: EventElicitationOpened, Request: a.Request}
	}
	return Event{Kind: EventNone}
}
