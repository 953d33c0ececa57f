// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigrun-chat/internal/transport"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

const titleLength = 40

type chat struct {
	id        string
	userID    string
	title     string
	updatedAt time.Time
	messages  []transport.HistoryMessage
}

// pendingElicitation is an unanswered elicitation and the reply it holds.
type pendingElicitation struct {
	chatID string
	reply  string
}

// store keeps chats and open elicitations in memory.
type store struct {
	mu      sync.Mutex
	chats   map[string]*chat
	pending map[string]pendingElicitation
}

func newStore() *store {
	return &store{
		chats:   make(map[string]*chat),
		pending: make(map[string]pendingElicitation),
	}
}

func (s *store) create(userID, firstMessage string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.chats[id] = &chat{
		id:        id,
		userID:    userID,
		title:     util.TruncateRunes(util.FirstLine(firstMessage), titleLength),
		updatedAt: time.Now(),
	}
	return id
}

func (s *store) exists(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[chatID]
	return ok
}

func (s *store) append(chatID, messageType, text, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return
	}
	c.messages = append(c.messages, transport.HistoryMessage{
		ID:          "msg-" + uuid.NewString(),
		MessageType: messageType,
		Message:     text,
		Model:       model,
	})
	c.updatedAt = time.Now()
}

func (s *store) details(chatID string) (transport.ChatDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return transport.ChatDetails{}, false
	}
	return transport.ChatDetails{
		ID:           c.id,
		Title:        c.title,
		ChatMessages: append([]transport.HistoryMessage{}, c.messages...),
	}, true
}

// list returns the user's chats, most recently updated first.
func (s *store) list(userID string) []transport.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []*chat
	for _, c := range s.chats {
		if c.userID == userID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].updatedAt.After(chats[j].updatedAt)
	})

	out := make([]transport.ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, transport.ChatSummary{
			ID:        c.id,
			Title:     c.title,
			UpdatedAt: c.updatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *store) openElicitation(chatID, reply string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.pending[id] = pendingElicitation{chatID: chatID, reply: reply}
	return id
}

// takeElicitation removes and returns the elicitation if it belongs to chatID.
func (s *store) takeElicitation(chatID, elicitationID string) (pendingElicitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[elicitationID]
	if !ok || p.chatID != chatID {
		return pendingElicitation{}, false
	}
	delete(s.pending, elicitationID)
	return p, true
}
