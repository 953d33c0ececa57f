// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/router"
	"github.com/jeranaias/rigrun-chat/internal/sse"
)

const confirmPayload = `{"elicitationId":"e1","name":"confirm","message":"Proceed?",` +
	`"requestedSchema":{"properties":{"chatId":{"type":"string"},"confirm":{"type":"boolean"}},"required":["confirm"]}}`

func strPtr(s string) *string { return &s }

func done(id, text, mdl string) *router.DoneResponse {
	return &router.DoneResponse{ID: id, Message: &router.DoneMessage{Message: strPtr(text), Model: mdl}}
}

// feed pushes raw wire text through decoder, router and reducer.
func feed(s *State, raw string) []Event {
	dec := sse.NewDecoder()
	frames := append(dec.Feed([]byte(raw)), dec.Flush()...)
	var events []Event
	for _, f := range frames {
		events = append(events, s.Apply(router.Route(f, s.RouterState(), zerolog.Nop())))
	}
	return events
}

// =============================================================================
// START / GREETING
// =============================================================================

func TestNew_Greeting(t *testing.T) {
	s := New(nil, DefaultGreeting)
	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.True(t, snap.Messages[0].IsEphemeral)
	assert.Equal(t, DefaultGreeting, snap.Messages[0].Text)
	assert.Equal(t, model.RoleAssistant, snap.Messages[0].Role)
}

func TestStartUserTurn(t *testing.T) {
	s := New(nil, DefaultGreeting)
	userID, aiID := s.StartUserTurn("hi")

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2, "greeting dropped")

	assert.Equal(t, model.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "hi", snap.Messages[0].Text)
	assert.Equal(t, userID, snap.Messages[0].ID)

	ph := snap.Messages[1]
	assert.Equal(t, model.RoleAssistant, ph.Role)
	assert.Equal(t, aiID, ph.ID)
	assert.True(t, ph.IsStreaming)
	assert.Empty(t, ph.Text)
	assert.Equal(t, strings.TrimPrefix(userID, "user-"), strings.TrimPrefix(aiID, "ai-"))
}

// =============================================================================
// APPEND
// =============================================================================

func TestAppendContent_OnlyToAssistant(t *testing.T) {
	s := New(nil, "")
	assert.False(t, s.AppendContent("x"), "empty transcript")

	s.Transcript.Append(model.NewMessage("u", model.RoleUser, "q"))
	assert.False(t, s.AppendContent("x"), "last is user")
	assert.Equal(t, "q", s.Transcript.Last().Text())
}

func TestAppendContent_OrderPreserving(t *testing.T) {
	parts := []string{"The ", "quick ", "bröwn ", "", "fox ✓"}
	raw := ""
	for _, p := range parts {
		raw += string(sse.Encode(sse.Frame{Event: sse.EventChunk, Data: p}))
	}

	want := strings.Join(parts, "")
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		s := New(nil, "")
		s.StartUserTurn("q")

		dec := sse.NewDecoder()
		b := []byte(raw)
		for len(b) > 0 {
			n := 1 + rng.Intn(len(b))
			for _, f := range dec.Feed(b[:n]) {
				s.Apply(router.Route(f, s.RouterState(), zerolog.Nop()))
			}
			b = b[n:]
		}
		for _, f := range dec.Flush() {
			s.Apply(router.Route(f, s.RouterState(), zerolog.Nop()))
		}

		require.Equal(t, want, s.Transcript.Last().Text(), "trial %d", trial)
	}
}

// =============================================================================
// FINALIZE
// =============================================================================

func TestFinalize_ChatIDAdoption(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")

	s.Finalize(done("abc", "hi", ""))
	assert.Equal(t, "abc", s.ChatID())
	assert.Equal(t, "abc", s.RouterState().ChatID)

	s.StartUserTurn("again")
	s.Finalize(done("other", "ok", ""))
	assert.Equal(t, "abc", s.ChatID(), "bound id is never overwritten")
}

func TestFinalize_Fallbacks(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")
	s.AppendContent("accumulated")
	s.Transcript.Last().Model = "prev"

	s.Finalize(&router.DoneResponse{})

	last := s.Transcript.Last()
	assert.Equal(t, "accumulated", last.Text())
	assert.Equal(t, "prev", last.Model)
	assert.False(t, last.IsStreaming)
	assert.Equal(t, "accumulated", last.RenderedText)
}

func TestFinalize_NilResponse(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")
	s.AppendContent("partial")

	s.Finalize(nil)

	last := s.Transcript.Last()
	assert.Equal(t, "partial", last.Text())
	assert.False(t, last.IsStreaming)
	assert.Empty(t, s.ChatID())
}

func TestFinalize_RendersThinkingStripped(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")
	s.Finalize(done("", "<think>hmm</think>Answer", "m"))

	last := s.Transcript.Last()
	assert.Equal(t, "<think>hmm</think>Answer", last.Text())
	assert.Equal(t, "Answer", last.RenderedText)
}

// =============================================================================
// END TO END
// =============================================================================

func TestEndToEnd_ChunksThenDone(t *testing.T) {
	s := New(nil, DefaultGreeting)
	s.StartUserTurn("hi")

	raw := "event:chunk\ndata:Hel\n\nevent:chunk\ndata:lo\n\n" +
		"event:done\ndata:{\"id\":\"c1\",\"message\":{\"message\":\"Hello\",\"model\":\"m1\"}}\n\n"
	events := feed(s, raw)

	require.Len(t, events, 3)
	assert.Equal(t, EventContent, events[0].Kind)
	assert.Equal(t, EventFinalized, events[2].Kind)
	assert.Equal(t, "c1", events[2].ChatIDAdopted)
	require.NotNil(t, events[2].Message)
	assert.Equal(t, "Hello", events[2].Message.Text)

	last := s.Transcript.Last()
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "Hello", last.Text())
	assert.Equal(t, "m1", last.Model)
	assert.False(t, last.IsStreaming)
	assert.Equal(t, "c1", s.ChatID())
}

func TestEndToEnd_AuthoritativeTextReplacesChunks(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")
	feed(s, "event:chunk\ndata:draft text\n\nevent:done\ndata:{\"message\":{\"message\":\"final\"}}\n\n")
	assert.Equal(t, "final", s.Transcript.Last().Text())
}

func TestUnframedFallback(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("hi")
	feed(s, "plain streamed answer")
	assert.Equal(t, "plain streamed answer", s.Transcript.Last().Text())
}

// =============================================================================
// ELICITATION
// =============================================================================

func TestOpenElicitation_DefaultsAndPlaceholder(t *testing.T) {
	s := New(nil, "")
	s.Transcript.ChatID = "X"
	s.StartUserTurn("delete it")

	req, err := elicitation.ParseRequest(confirmPayload)
	require.NoError(t, err)
	s.OpenElicitation(req)

	require.NotNil(t, s.Form)
	assert.Equal(t, map[string]string{"chatId": "X", "confirm": ""}, s.Form.Values())
	assert.Equal(t, 1, s.Transcript.Len(), "empty placeholder removed")
	assert.Equal(t, model.RoleUser, s.Transcript.Last().Role)
}

func TestOpenElicitation_KeepsPlaceholderWithContent(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	s.AppendContent("Let me check.")

	req, err := elicitation.ParseRequest(confirmPayload)
	require.NoError(t, err)
	s.OpenElicitation(req)

	assert.Equal(t, 2, s.Transcript.Len())
	assert.Equal(t, "Let me check.", s.Transcript.Last().Text())
}

func TestElicitation_CancelledByContent(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	events := feed(s, "event:elicitation\ndata:"+confirmPayload+"\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, EventElicitationOpened, events[0].Kind)
	require.NotNil(t, s.Form)

	events = feed(s, "event:chunk\ndata:never mind\n\n")
	assert.Nil(t, s.Form)
	assert.True(t, events[0].ElicitationCancelled)
}

func TestElicitation_ClearedByDone(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	feed(s, "event:elicitation\ndata:"+confirmPayload+"\n\nevent:done\ndata:garbage\n\n")
	assert.Nil(t, s.Form)
}

func TestElicitation_MalformedIgnored(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	events := feed(s, "event:elicitation\ndata:{broken\n\n")
	assert.Equal(t, EventNone, events[0].Kind)
	assert.Nil(t, s.Form)
	assert.True(t, s.Transcript.Last().IsStreaming, "placeholder untouched")
}

func TestBeginElicitationResponse(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	feed(s, "event:elicitation\ndata:"+confirmPayload+"\n\n")

	s.BeginElicitationResponse("Proceed?", "accept")

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, model.RoleSystem, snap.Messages[1].Role)
	assert.Equal(t, "Proceed?", snap.Messages[1].Text)
	assert.Equal(t, model.RoleUser, snap.Messages[2].Role)
	assert.Equal(t, "accept", snap.Messages[2].Text)
	assert.True(t, snap.Messages[3].IsStreaming)
	assert.Equal(t, 1, snap.StreamingCount())
}

func TestClearElicitation_Identity(t *testing.T) {
	s := New(nil, "")
	req, err := elicitation.ParseRequest(confirmPayload)
	require.NoError(t, err)
	s.OpenElicitation(req)
	first := s.Form

	s.OpenElicitation(req)
	assert.False(t, s.ClearElicitation(first), "newer form survives")
	assert.NotNil(t, s.Form)
	assert.True(t, s.ClearElicitation(s.Form))
	assert.Nil(t, s.Form)
}

// =============================================================================
// FAILURE
// =============================================================================

func TestStreamFailed(t *testing.T) {
	boom := errors.New("connection reset")

	s := New(nil, "")
	s.StartUserTurn("q")
	assert.Equal(t, boom, s.StreamFailed(boom))
	assert.Equal(t, 1, s.Transcript.Len(), "empty placeholder removed")
	assert.Equal(t, model.RoleUser, s.Transcript.Last().Role)

	s.StartUserTurn("q2")
	s.AppendContent("partial")
	assert.ErrorIs(t, s.StreamFailed(boom), boom)
	last := s.Transcript.Last()
	assert.Equal(t, "partial", last.Text())
	assert.False(t, last.IsStreaming)
	assert.Equal(t, 3, s.Transcript.Len(), "earlier messages kept")
}

func TestEndOfStream(t *testing.T) {
	s := New(nil, "")
	s.StartUserTurn("q")
	s.AppendContent("no done frame")
	assert.True(t, s.EndOfStream())
	assert.False(t, s.Transcript.Last().IsStreaming)
	assert.False(t, s.EndOfStream(), "already settled")

	s.StartUserTurn("q2")
	assert.True(t, s.EndOfStream())
	assert.Equal(t, model.RoleUser, s.Transcript.Last().Role)
}

func TestAtMostOneStreaming(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New(nil, DefaultGreeting)

	for i := 0; i < 500; i++ {
		switch rng.Intn(5) {
		case 0:
			s.StartUserTurn("q")
		case 1:
			s.AppendContent("tok")
		case 2:
			s.Finalize(done("c", "final", "m"))
		case 3:
			s.StreamFailed(errors.New("x"))
		case 4:
			s.BeginElicitationResponse("p", "a")
		}
		require.LessOrEqual(t, s.Transcript.StreamingCount(), 1, "step %d", i)
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func TestSeed(t *testing.T) {
	s := New(nil, DefaultGreeting)
	s.Seed("c7", []HistoryEntry{
		{ID: "m1", Role: model.RoleUser, Text: "q"},
		{Role: model.RoleAssistant, Text: "<think>x</think>a", Model: "m"},
	})

	snap := s.Snapshot()
	assert.Equal(t, "c7", snap.ChatID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "m1", snap.Messages[0].ID)
	assert.Equal(t, "c7-1", snap.Messages[1].ID)
	assert.Equal(t, "a", snap.Messages[1].RenderedText)
	assert.Equal(t, 0, snap.StreamingCount())

	s.Seed("c8", nil)
	snap = s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.True(t, snap.Messages[0].IsEphemeral)
	assert.Equal(t, "c8", snap.ChatID)
}
