// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/render"
	"github.com/jeranaias/rigrun-chat/internal/transcript"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

var (
	// ErrEmptyMessage is returned for a blank user turn.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSuperseded is returned by a turn whose stream was replaced by a
	// newer request or cancelled.
	ErrSuperseded = errors.New("stream superseded")

	// ErrNoElicitation is returned when no elicitation is pending.
	ErrNoElicitation = errors.New("no elicitation pending")

	// ErrInvalidOption is returned for a value that is not an option token.
	ErrInvalidOption = errors.New("invalid option")
)

// Transport is the subset of the backend client a session uses.
type Transport interface {
	OpenChatStream(ctx context.Context, message, chatID string) (io.ReadCloser, error)
	OpenElicitationResumeStream(ctx context.Context, resp elicitation.Response, chatID, elicitationID string) (io.ReadCloser, error)
	FetchChatHistory(ctx context.Context, chatID string) (*transport.ChatDetails, error)
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds configuration for a session.
type Config struct {
	// Greeting is the ephemeral welcome shown in a new chat.
	Greeting string

	// Renderer renders finalized messages. Nil renders plain text.
	Renderer render.Renderer

	// ReadBufferSize is the stream read size in bytes.
	ReadBufferSize int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Greeting:       transcript.DefaultGreeting,
		ReadBufferSize: 32 * 1024,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the chat controller exposed to the UI.
type Session struct {
	mu sync.Mutex

	id        string
	startTime time.Time
	state     *transcript.State
	transport Transport
	bufSize   int
	log       zerolog.Logger

	// gen identifies the stream allowed to mutate state.
	gen    uint64
	cancel context.CancelFunc

	listener Listener
}

// New creates a session on a fresh chat.
func New(t Transport, cfg Config, log zerolog.Logger) *Session {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultConfig().ReadBufferSize
	}
	id := generateSessionID()
	return &Session{
		id:        id,
		startTime: time.Now(),
		state:     transcript.New(cfg.Renderer, cfg.Greeting),
		transport: t,
		bufSize:   cfg.ReadBufferSize,
		log:       log.With().Str("component", "session").Str("session", id).Logger(),
	}
}

// ID returns the local session id.
func (s *Session) ID() string {
	return s.id
}

// Duration returns how long the session has been active.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startTime)
}

// SetListener registers fn to receive updates. Nil removes the listener.
func (s *Session) SetListener(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// ChatID returns the bound chat id, empty for a new chat.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ChatID()
}

// Snapshot returns a read-only copy of the transcript.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// ActiveElicitation returns a copy of the pending form, nil when none.
func (s *Session) ActiveElicitation() *elicitation.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Form == nil {
		return nil
	}
	return s.state.Form.Clone()
}

// Streaming reports whether a stream is in flight.
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// =============================================================================
// USER TURNS
// =============================================================================

// StartUserTurn sends text and consumes the response stream. It returns
// when the stream ends, fails or is superseded.
func (s *Session) StartUserTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	gen, streamCtx := s.begin(ctx)
	s.state.StartUserTurn(text)
	chatID := s.state.ChatID()
	s.mu.Unlock()

	s.log.Debug().Str("chat", chatID).Uint64("gen", gen).Msg("user turn")
	s.notify(Update{Kind: UpdateTurnStarted})

	body, err := s.transport.OpenChatStream(streamCtx, text, chatID)
	if err != nil {
		return s.fail(gen, err)
	}
	return s.consume(gen, body)
}

// =============================================================================
// ELICITATION
// =============================================================================

// SubmitElicitationField sets one field of the pending form.
func (s *Session) SubmitElicitationField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Form == nil {
		return ErrNoElicitation
	}
	s.state.Form.SetField(name, value)
	return nil
}

// SubmitElicitation answers the pending elicitation with overrides merged
// over the form values, then consumes the resumed stream. It reports false
// without error when nothing is pending or required fields are missing.
// The form is detached once the submission starts, so ActiveElicitation
// reports nil while the answer is in flight.
func (s *Session) SubmitElicitation(ctx context.Context, overrides map[string]string) (bool, error) {
	s.mu.Lock()
	form := s.state.Form
	if form == nil || !form.CanSubmitWith(overrides) || !form.BeginSubmit() {
		s.mu.Unlock()
		return false, nil
	}

	req := form.Request
	resp := form.Response(overrides)
	summary := elicitation.Summary(form.Merged(overrides))
	chatID := req.OwningChatID()
	if chatID == "" {
		chatID = s.state.ChatID()
	}

	// Detach the form so frames from the resumed stream are not read as a
	// server-side cancellation.
	s.state.ClearElicitation(form)
	gen, streamCtx := s.begin(ctx)
	s.state.BeginElicitationResponse(req.Message, summary)
	s.mu.Unlock()

	s.log.Debug().
		Str("chat", chatID).
		Str("elicitation", req.ElicitationID).
		Str("name", req.Name).
		Uint64("gen", gen).
		Msg("elicitation submitted")
	s.notify(Update{Kind: UpdateTurnStarted})

	body, err := s.transport.OpenElicitationResumeStream(streamCtx, resp, chatID, req.ElicitationID)
	if err != nil {
		return true, s.fail(gen, err)
	}
	return true, s.consume(gen, body)
}

// ChooseOption records a boolean answer. When the form asks only for that
// one boolean, the answer is submitted at once and ChooseOption reports
// whether it was sent.
func (s *Session) ChooseOption(ctx context.Context, name, token string) (bool, error) {
	if !elicitation.IsBooleanToken(token) {
		return false, fmt.Errorf("%w: %q", ErrInvalidOption, token)
	}

	s.mu.Lock()
	form := s.state.Form
	if form == nil {
		s.mu.Unlock()
		return false, ErrNoElicitation
	}
	only, ok := form.BooleanOnly()
	if !ok || only != name {
		form.SetField(name, token)
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	return s.SubmitElicitation(ctx, map[string]string{name: token})
}

// =============================================================================
// CHAT SELECTION
// =============================================================================

// NewChat abandons any stream and starts an empty chat.
func (s *Session) NewChat() {
	s.mu.Lock()
	s.supersede()
	s.state.Reset()
	s.mu.Unlock()
	s.notify(Update{Kind: UpdateReset})
}

// SwitchChat abandons any stream and loads chatID's stored history. The
// abandoned reply is settled first, so a failed load leaves the current
// transcript continuable.
func (s *Session) SwitchChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return fmt.Errorf("switch chat: %w", transport.ErrMissingID)
	}

	s.mu.Lock()
	running := s.cancel != nil
	s.supersede()
	settled := running && s.state.EndOfStream()
	gen := s.gen
	s.mu.Unlock()
	if settled {
		s.notify(Update{Kind: UpdateStreamEnded, Err: ErrSuperseded})
	}

	details, err := s.transport.FetchChatHistory(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load chat %s: %w", chatID, err)
	}
	entries := s.historyEntries(details.ChatMessages)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.state.Seed(chatID, entries)
	s.mu.Unlock()

	s.log.Info().Str("chat", chatID).Int("messages", len(entries)).Msg("chat loaded")
	s.notify(Update{Kind: UpdateReset})
	return nil
}

func (s *Session) historyEntries(msgs []transport.HistoryMessage) []transcript.HistoryEntry {
	entries := make([]transcript.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		role, err := model.ParseRole(m.MessageType)
		if err != nil {
			s.log.Warn().Str("id", m.ID).Str("type", m.MessageType).Msg("skipping history message")
			continue
		}
		entries = append(entries, transcript.HistoryEntry{
			ID:    m.ID,
			Role:  role,
			Text:  m.Message,
			Model: m.Model,
		})
	}
	return entries
}

// Cancel stops the stream in flight. The partial reply is kept; an empty
// placeholder is removed. It reports whether a stream was running.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	running := s.cancel != nil
	if running {
		s.supersede()
		s.state.EndOfStream()
	}
	s.mu.Unlock()

	if running {
		s.log.Debug().Msg("stream cancelled")
		s.notify(Update{Kind: UpdateStreamEnded, Err: ErrSuperseded})
	}
	return running
}

// =============================================================================
// GENERATIONS
// =============================================================================

// begin starts a new generation and returns its stream context. The caller
// holds s.mu.
func (s *Session) begin(parent context.Context) (uint64, context.Context) {
	s.supersede()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return s.gen, ctx
}

// supersede invalidates the current stream. The caller holds s.mu.
func (s *Session) supersede() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// release ends generation gen's stream context if it is still current.
// The caller holds s.mu.
func (s *Session) release(gen uint64) {
	if gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) notify(u Update) {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn(u)
	}
}

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return model.NewID("sess")
}
