// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// printer.go - Incremental reply output driven by session updates.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/render"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/transcript"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// streamPrinter writes replies as they stream. Plain output is written
// chunk by chunk with reasoning blocks held back; markdown output is
// rendered once the reply settles.
type streamPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	markdown bool
	quiet    bool

	raw       strings.Builder
	shown     string
	headed    bool
	finalized bool
}

func newStreamPrinter(out io.Writer, markdown, quiet bool) *streamPrinter {
	return &streamPrinter{out: out, markdown: markdown, quiet: quiet}
}

// Handle is a session.Listener.
func (p *streamPrinter) Handle(u session.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch u.Kind {
	case session.UpdateTurnStarted:
		p.raw.Reset()
		p.shown = ""
		p.headed = false
		p.finalized = false
	case session.UpdateFrame:
		p.frame(u.Event)
	case session.UpdateStreamEnded:
		if errors.Is(u.Err, session.ErrSuperseded) {
			p.endLine()
			fmt.Fprintln(p.out, WarningStyle.Render("[Cancelled]"))
			p.finalized = true
		}
	case session.UpdateStreamFailed:
		p.endLine()
		p.finalized = true
	}
}

func (p *streamPrinter) frame(ev transcript.Event) {
	if ev.ElicitationCancelled {
		p.endLine()
		fmt.Fprintln(p.out, DimStyle.Render("(the pending question was withdrawn)"))
	}

	switch ev.Kind {
	case transcript.EventContent:
		p.raw.WriteString(ev.Text)
		if p.markdown {
			return
		}
		visible := visiblePrefix(p.raw.String())
		if len(visible) > len(p.shown) && strings.HasPrefix(visible, p.shown) {
			p.write(visible[len(p.shown):])
			p.shown = visible
		}
	case transcript.EventFinalized:
		if ev.Message != nil {
			p.settle(*ev.Message)
		}
	}
}

// Settle prints the last assistant message of snap if the stream ended
// without a done frame.
func (p *streamPrinter) Settle(snap model.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finalized {
		return
	}
	last, ok := snap.Last()
	if !ok || last.Role != model.RoleAssistant || last.IsEphemeral {
		p.endLine()
		return
	}
	p.settle(last)
}

func (p *streamPrinter) settle(msg model.MessageView) {
	p.finalized = true
	if p.markdown {
		text := msg.RenderedText
		if text == "" {
			text = render.Display(msg.Text)
		}
		p.write(text)
		p.endLine()
		p.footer(msg)
		return
	}

	visible := render.Display(msg.Text)
	done := strings.TrimRight(p.shown, " \t\r\n")
	if strings.HasPrefix(visible, done) {
		p.write(visible[len(done):])
	} else {
		p.endLine()
		p.write(visible)
	}
	p.shown = visible
	p.endLine()
	p.footer(msg)
}

func (p *streamPrinter) footer(msg model.MessageView) {
	if p.quiet || msg.Model == "" {
		return
	}
	fmt.Fprintln(p.out, DimStyle.Render("("+msg.Model+")"))
}

func (p *streamPrinter) write(s string) {
	if s == "" {
		return
	}
	if !p.headed && !p.quiet {
		fmt.Fprintln(p.out, RoleLabel(model.RoleAssistant))
	}
	p.headed = true
	io.WriteString(p.out, s)
}

// endLine terminates a partially written reply.
func (p *streamPrinter) endLine() {
	if p.headed {
		fmt.Fprintln(p.out)
		p.headed = false
	}
}

// visiblePrefix returns the part of a streaming reply that can be shown:
// complete reasoning blocks are removed, and an unclosed block or a
// trailing partial opening tag is held back.
func visiblePrefix(raw string) string {
	var b strings.Builder
	for {
		i := strings.Index(raw, thinkOpen)
		if i < 0 {
			b.WriteString(raw[:len(raw)-partialSuffix(raw, thinkOpen)])
			break
		}
		b.WriteString(raw[:i])
		rest := raw[i+len(thinkOpen):]
		j := strings.Index(rest, thinkClose)
		if j < 0 {
			break
		}
		raw = rest[j+len(thinkClose):]
	}
	return strings.TrimLeft(b.String(), " \t\r\n")
}

// partialSuffix returns the length of the longest proper prefix of tag
// that s ends with.
func partialSuffix(s, tag string) int {
	for n := len(tag) - 1; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
