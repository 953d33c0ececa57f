// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns settled message text into display text.
//
// Reasoning blocks wrapped in <think> tags are removed before anything is
// shown, and a message with nothing left renders as a fixed notice.
package render

import (
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// EmptyNotice is shown for a message without displayable text.
const EmptyNotice = "No Message In Response"

// DefaultWordWrap is the wrap width used when none is configured.
const DefaultWordWrap = 80

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Renderer converts message text for display.
type Renderer interface {
	Render(text string) string
}

// StripThinking removes <think>...</think> blocks and surrounding blank space.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}

// Display applies thinking removal and the empty-message notice.
func Display(text string) string {
	if s := StripThinking(text); s != "" {
		return s
	}
	return EmptyNotice
}

// =============================================================================
// PLAIN
// =============================================================================

// Plain renders text without markdown styling.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(text string) string {
	return Display(text)
}

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders text as styled terminal markdown.
type Markdown struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewMarkdown creates a markdown renderer. style is "auto" or one of
// glamour's standard styles ("dark", "light", "notty", "ascii").
func NewMarkdown(style string, wordWrap int) (*Markdown, error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return nil, err
	}
	return &Markdown{tr: tr}, nil
}

// Render implements Renderer. Rendering errors fall back to plain text.
func (m *Markdown) Render(text string) string {
	plain := Display(text)
	if plain == EmptyNotice {
		return plain
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out, err := m.tr.Render(plain)
	if err != nil {
		return plain
	}
	return strings.TrimRight(out, "\n")
}

// New returns a markdown renderer when enabled, falling back to Plain when
// markdown is disabled or the renderer cannot be built.
func New(markdown bool, style string, wordWrap int) Renderer {
	if !markdown {
		return Plain{}
	}
	md, err := NewMarkdown(style, wordWrap)
	if err != nil {
		return Plain{}
	}
	return md
}
