// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"USER", RoleUser, false},
		{"user", RoleUser, false},
		{"ASSISTANT", RoleAssistant, false},
		{"ai", RoleAssistant, false},
		{" System ", RoleSystem, false},
		{"tool", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_AppendAndSet(t *testing.T) {
	m := NewPlaceholder("ai-1")
	if !m.IsStreaming || !m.IsEmpty() {
		t.Fatal("placeholder should be empty and streaming")
	}

	m.AppendText("Hel")
	m.AppendText("lo")
	if m.Text() != "Hello" {
		t.Errorf("Text() = %q, want %q", m.Text(), "Hello")
	}

	m.SetText("Bye")
	if m.Text() != "Bye" {
		t.Errorf("Text() after SetText = %q, want %q", m.Text(), "Bye")
	}
}

func TestMessage_IsBlank(t *testing.T) {
	m := NewPlaceholder("ai-1")
	m.AppendText("  \n")
	if m.IsEmpty() {
		t.Error("whitespace message should not be empty")
	}
	if !m.IsBlank() {
		t.Error("whitespace message should be blank")
	}
}

func TestNewTurnIDs_Paired(t *testing.T) {
	u, a := NewTurnIDs()
	if !strings.HasPrefix(u, "user-") || !strings.HasPrefix(a, "ai-") {
		t.Fatalf("unexpected prefixes: %q %q", u, a)
	}
	if strings.TrimPrefix(u, "user-") != strings.TrimPrefix(a, "ai-") {
		t.Errorf("turn ids should share a token: %q %q", u, a)
	}

	u2, _ := NewTurnIDs()
	if u == u2 {
		t.Error("consecutive turns should get distinct ids")
	}
}

func TestHistoryID(t *testing.T) {
	if got := HistoryID("c1", "m9", 0); got != "m9" {
		t.Errorf("HistoryID with persisted id = %q", got)
	}
	if got := HistoryID("c1", "", 3); got != "c1-3" {
		t.Errorf("HistoryID fallback = %q", got)
	}
	if got := HistoryID("", "", 0); got != "new-0" {
		t.Errorf("HistoryID without chat = %q", got)
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_DropEphemeral(t *testing.T) {
	tr := NewTranscript()
	tr.Append(NewEphemeral("Hi!"), NewMessage("u1", RoleUser, "a"), NewEphemeral("x"))

	tr.DropEphemeral()

	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if tr.Last().ID != "u1" {
		t.Errorf("Last().ID = %q, want u1", tr.Last().ID)
	}
}

func TestTranscript_RemoveLast(t *testing.T) {
	tr := NewTranscript()
	tr.RemoveLast()
	if tr.Last() != nil {
		t.Error("Last() on empty transcript should be nil")
	}

	tr.Append(NewMessage("u1", RoleUser, "a"), NewPlaceholder("ai1"))
	tr.RemoveLast()
	if tr.Len() != 1 || tr.Last().ID != "u1" {
		t.Errorf("RemoveLast left %d messages", tr.Len())
	}
}

func TestTranscript_SnapshotIsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.ChatID = "c1"
	ai := NewPlaceholder("ai1")
	tr.Append(ai)
	ai.AppendText("one")

	snap := tr.Snapshot()
	ai.AppendText(" two")

	last, ok := snap.Last()
	if !ok {
		t.Fatal("snapshot should have a last message")
	}
	if last.Text != "one" {
		t.Errorf("snapshot text = %q, want %q", last.Text, "one")
	}
	if snap.ChatID != "c1" {
		t.Errorf("snapshot ChatID = %q", snap.ChatID)
	}
	if snap.StreamingCount() != 1 {
		t.Errorf("StreamingCount() = %d, want 1", snap.StreamingCount())
	}
}

func TestSnapshot_Conversation(t *testing.T) {
	tr := NewTranscript()
	tr.Append(NewEphemeral("Hi!"), NewMessage("u1", RoleUser, "a"))
	conv := tr.Snapshot().Conversation()
	if len(conv) != 1 || conv[0].ID != "u1" {
		t.Errorf("Conversation() = %+v", conv)
	}
}
