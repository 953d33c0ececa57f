// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/router"
	"github.com/jeranaias/rigrun-chat/internal/sse"
)

// confirmKeyword in a user message triggers an elicitation.
const confirmKeyword = "confirm"

// Scripted texts.
const (
	elicitationName    = "confirm_action"
	elicitationPrompt  = "Do you want me to proceed?"
	elicitationPreface = "Before I continue, I need your confirmation."

	replyAccepted = "Confirmed. Proceeding with: "
	replyDeclined = "Okay, I won't proceed."
	replyCanceled = "Cancelled."
)

type chatMessageBody struct {
	ChatMessage string `json:"chatMessage"`
}

// ============================================================================
// STREAMING HANDLERS
// ============================================================================

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.decodeMessage(w, r)
	if !ok {
		return
	}
	chatID := s.store.create(chi.URLParam(r, "userId"), msg)
	s.metrics.ChatsCreated.Inc()
	s.reply(w, r, chatID, msg)
}

func (s *Server) handleContinueChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if !s.store.exists(chatID) {
		s.writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	msg, ok := s.decodeMessage(w, r)
	if !ok {
		return
	}
	s.reply(w, r, chatID, msg)
}

func (s *Server) handleElicitationResponse(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	var body elicitation.Response
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid elicitation response")
		return
	}
	pending, ok := s.store.takeElicitation(chatID, chi.URLParam(r, "elicitationId"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "elicitation not found")
		return
	}

	outcome := strings.ToLower(body.ElicitationResponse.Fields["confirm"])
	var text string
	switch outcome {
	case elicitation.Accept, "true":
		outcome = elicitation.Accept
		text = replyAccepted + pending.reply
	case elicitation.Decline, "false":
		outcome = elicitation.Decline
		text = replyDeclined
	default:
		outcome = elicitation.Cancel
		text = replyCanceled
	}
	s.metrics.Elicitations.WithLabelValues(outcome).Inc()
	s.store.append(chatID, "USER", outcome, "")

	st, ok := s.startStream(w)
	if !ok {
		return
	}
	if st.content(r, text) {
		st.done(chatID, text)
		s.store.append(chatID, "AI", text, s.cfg.Model)
	}
}

func (s *Server) decodeMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body chatMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(body.ChatMessage) == "" {
		s.writeError(w, http.StatusBadRequest, "chatMessage is required")
		return "", false
	}
	return body.ChatMessage, true
}

// reply streams the scripted answer to msg.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, chatID, msg string) {
	s.store.append(chatID, "USER", msg, "")

	st, ok := s.startStream(w)
	if !ok {
		return
	}

	if strings.Contains(strings.ToLower(msg), confirmKeyword) {
		if !st.content(r, elicitationPreface) {
			return
		}
		s.store.append(chatID, "AI", elicitationPreface, s.cfg.Model)
		st.elicit(s.confirmRequest(chatID, msg))
		s.metrics.Elicitations.WithLabelValues("requested").Inc()
		return
	}

	text := "You said: " + msg
	if st.content(r, text) {
		st.done(chatID, text)
		s.store.append(chatID, "AI", text, s.cfg.Model)
	}
}

func (s *Server) confirmRequest(chatID, msg string) *elicitation.Request {
	req := &elicitation.Request{
		ElicitationID: s.store.openElicitation(chatID, msg),
		ChatID:        chatID,
		Name:          elicitationName,
		Message:       elicitationPrompt,
		Meta:          &elicitation.Meta{ChatID: chatID},
	}
	req.RequestedSchema.Add(elicitation.ChatIDField, elicitation.Property{Type: elicitation.TypeString})
	req.RequestedSchema.Add("confirm", elicitation.Property{
		Type:        elicitation.TypeBoolean,
		Title:       "Proceed",
		Description: "Answer accept, decline or cancel",
	})
	req.RequestedSchema.Required = []string{"confirm"}
	return req
}

// ============================================================================
// JSON HANDLERS
// ============================================================================

func (s *Server) handleChatDetails(w http.ResponseWriter, r *http.Request) {
	details, ok := s.store.details(chi.URLParam(r, "chatId"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.list(chi.URLParam(r, "userId")))
}

// ============================================================================
// STREAM WRITER
// ============================================================================

type stream struct {
	s       *Server
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *Server) startStream(w http.ResponseWriter) (*stream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &stream{s: s, w: w, flusher: flusher}, true
}

func (st *stream) send(f sse.Frame) bool {
	if _, err := st.w.Write(sse.Encode(f)); err != nil {
		st.s.log.Debug().Err(err).Str("event", f.Event).Msg("client went away")
		return false
	}
	st.flusher.Flush()
	st.s.metrics.FramesSent.WithLabelValues(f.Event).Inc()
	return true
}

// content sends text as chunk frames. It reports false if the client left.
func (st *stream) content(r *http.Request, text string) bool {
	runes := []rune(text)
	size := st.s.cfg.ChunkSize
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		if !st.send(sse.Frame{Event: sse.EventChunk, Data: string(runes[i:end])}) {
			return false
		}
		if st.s.cfg.ChunkDelay > 0 {
			select {
			case <-r.Context().Done():
				return false
			case <-time.After(st.s.cfg.ChunkDelay):
			}
		}
	}
	return true
}

func (st *stream) done(chatID, text string) {
	resp := router.DoneResponse{
		ID:      chatID,
		Message: &router.DoneMessage{Message: &text, Model: st.s.cfg.Model},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		st.s.log.Error().Err(err).Msg("encode done frame")
		return
	}
	st.send(sse.Frame{Event: sse.EventDone, Data: string(data)})
}

func (st *stream) elicit(req *elicitation.Request) {
	data, err := json.Marshal(req)
	if err != nil {
		st.s.log.Error().Err(err).Msg("encode elicitation frame")
		return
	}
	st.send(sse.Frame{Event: sse.EventElicitation, Data: string(data)})
}
