// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/auth"
	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/mockserver"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

func newMockSession(t *testing.T) (*Session, *transport.Client) {
	t.Helper()
	srv := mockserver.New(mockserver.Config{Token: "tok", ChunkSize: 4}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	tokens := auth.NewStatic("tok", "u1", nil, zerolog.Nop())
	client := transport.NewClient(ts.URL, tokens, zerolog.Nop()).WithHTTPClient(ts.Client())
	return New(client, DefaultConfig(), zerolog.Nop()), client
}

func TestEndToEnd_MockServer(t *testing.T) {
	ctx := context.Background()
	s, client := newMockSession(t)

	require.NoError(t, s.StartUserTurn(ctx, "hello there"))
	chatID := s.ChatID()
	require.NotEmpty(t, chatID, "chat id adopted from the first done frame")

	last, ok := s.Snapshot().Last()
	require.True(t, ok)
	assert.Equal(t, "You said: hello there", last.Text)
	assert.Equal(t, mockserver.DefaultModel, last.Model)
	assert.False(t, last.IsStreaming)

	// Elicitation round trip.
	require.NoError(t, s.StartUserTurn(ctx, "please confirm"))
	form := s.ActiveElicitation()
	require.NotNil(t, form)
	assert.Equal(t, chatID, form.Value(elicitation.ChatIDField))

	sent, err := s.ChooseOption(ctx, "confirm", elicitation.Accept)
	require.NoError(t, err)
	require.True(t, sent)
	assert.Nil(t, s.ActiveElicitation())

	last, _ = s.Snapshot().Last()
	assert.Equal(t, "Confirmed. Proceeding with: please confirm", last.Text)

	// Reload the chat from the server.
	require.NoError(t, s.SwitchChat(ctx, chatID))
	snap := s.Snapshot()
	assert.Equal(t, chatID, snap.ChatID)
	require.NotEmpty(t, snap.Messages)
	assert.Equal(t, model.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "hello there", snap.Messages[0].Text)
	assert.Zero(t, snap.StreamingCount())

	chats, err := client.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chatID, chats[0].ID)
}

func TestEndToEnd_Unauthorized(t *testing.T) {
	srv := mockserver.New(mockserver.Config{Token: "right"}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tokens := auth.NewStatic("wrong", "u1", auth.NewGuard(1, 0), zerolog.Nop())
	client := transport.NewClient(ts.URL, tokens, zerolog.Nop()).WithHTTPClient(ts.Client())
	s := New(client, DefaultConfig(), zerolog.Nop())

	err := s.StartUserTurn(context.Background(), "hi")
	assert.ErrorIs(t, err, transport.ErrUnauthorized)

	err = s.StartUserTurn(context.Background(), "hi again")
	assert.ErrorIs(t, err, auth.ErrBlocked, "guard blocks after the failure budget is spent")
	assert.Zero(t, s.Snapshot().StreamingCount())
}
