// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/router"
	"github.com/jeranaias/rigrun-chat/internal/sse"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(cfg, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readFrames(t *testing.T, resp *http.Response) []sse.Frame {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	dec := sse.NewDecoder()
	return append(dec.Feed(data), dec.Flush()...)
}

func chunks(frames []sse.Frame) string {
	var b strings.Builder
	for _, f := range frames {
		if f.Event == sse.EventChunk {
			b.WriteString(f.Data)
		}
	}
	return b.String()
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth(t *testing.T) {
	_, ts := newTestServer(t, Config{Token: "secret"})

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health is public")

	resp = do(t, http.MethodGet, ts.URL+"/chats/users/u1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/chats/users/u1", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/chats/users/u1", "secret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// CHAT STREAMS
// =============================================================================

func TestNewChatStream(t *testing.T) {
	_, ts := newTestServer(t, Config{ChunkSize: 3})

	resp := do(t, http.MethodPost, ts.URL+"/streaming/chats/users/u1", "tok", map[string]string{"chatMessage": "hello"})
	frames := readFrames(t, resp)
	require.NotEmpty(t, frames)
	assert.Equal(t, "You said: hello", chunks(frames))

	last := frames[len(frames)-1]
	require.Equal(t, sse.EventDone, last.Event)
	done, err := router.ParseDone(last.Data)
	require.NoError(t, err)
	assert.NotEmpty(t, done.ChatID())
	assert.Equal(t, "You said: hello", done.FinalText(""))
	assert.Equal(t, DefaultModel, done.FinalModel(""))

	// Continue the chat and read it back.
	resp = do(t, http.MethodPut, ts.URL+"/streaming/chats/"+done.ChatID(), "tok", map[string]string{"chatMessage": "again"})
	assert.Equal(t, "You said: again", chunks(readFrames(t, resp)))

	resp = do(t, http.MethodGet, ts.URL+"/chats/"+done.ChatID(), "tok", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details transport.ChatDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	require.Len(t, details.ChatMessages, 4)
	assert.Equal(t, "USER", details.ChatMessages[0].MessageType)
	assert.Equal(t, "hello", details.ChatMessages[0].Message)
	assert.Equal(t, "AI", details.ChatMessages[3].MessageType)

	resp = do(t, http.MethodGet, ts.URL+"/chats/users/u1", "tok", nil)
	var list []transport.ChatSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Label())

	resp = do(t, http.MethodGet, ts.URL+"/chats/users/someone-else", "tok", nil)
	list = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}

func TestStreamErrors(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp := do(t, http.MethodPut, ts.URL+"/streaming/chats/nope", "tok", map[string]string{"chatMessage": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/streaming/chats/users/u1", "tok", map[string]string{"chatMessage": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/chats/nope", "tok", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ELICITATION
// =============================================================================

func TestConfirmElicitation(t *testing.T) {
	tests := []struct {
		answer string
		want   string
	}{
		{elicitation.Accept, replyAccepted + "please confirm the deploy"},
		{"false", replyDeclined},
		{elicitation.Cancel, replyCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			_, ts := newTestServer(t, Config{})

			resp := do(t, http.MethodPost, ts.URL+"/streaming/chats/users/u1", "tok",
				map[string]string{"chatMessage": "please confirm the deploy"})
			frames := readFrames(t, resp)
			require.NotEmpty(t, frames)
			assert.Equal(t, elicitationPreface, chunks(frames))

			last := frames[len(frames)-1]
			require.Equal(t, sse.EventElicitation, last.Event)
			req, err := elicitation.ParseRequest(last.Data)
			require.NoError(t, err)
			assert.Equal(t, []string{elicitation.ChatIDField, "confirm"}, req.RequestedSchema.Names())
			assert.True(t, req.RequestedSchema.IsRequired("confirm"))
			assert.Equal(t, req.ChatID, req.OwningChatID())

			form := elicitation.NewForm(req, "")
			form.SetField("confirm", tt.answer)
			url := ts.URL + "/streaming/chats/" + req.ChatID + "/" + req.ElicitationID + "/elicitation-response"
			resp = do(t, http.MethodPost, url, "tok", form.Response(nil))
			frames = readFrames(t, resp)
			assert.Equal(t, tt.want, chunks(frames))
			assert.Equal(t, sse.EventDone, frames[len(frames)-1].Event)

			// An elicitation can be answered once.
			resp = do(t, http.MethodPost, url, "tok", form.Response(nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	readFrames(t, do(t, http.MethodPost, ts.URL+"/streaming/chats/users/u1", "tok", map[string]string{"chatMessage": "hi"}))

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "rigchat_mock_chats_created_total 1")
	assert.Contains(t, text, `rigchat_mock_frames_sent_total{event="done"} 1`)
	assert.Contains(t, text, `route="/streaming/chats/users/{userId}"`)
}
