// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bytes"
	"strings"
)

// =============================================================================
// FRAME
// =============================================================================

// Event names understood by the chat stream.
const (
	EventChunk       = "chunk"
	EventMessage     = "message"
	EventDone        = "done"
	EventElicitation = "elicitation"
)

const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
)

// Frame is one decoded block of the stream.
type Frame struct {
	Event string
	Data  string
}

// Unframed reports whether the frame came from a block without any
// event or data lines.
func (f Frame) Unframed() bool {
	return f.Event == ""
}

// =============================================================================
// PARSING
// =============================================================================

// ParseBlock parses a single block (text between blank lines).
// ok is false when the block is blank and should be discarded.
func ParseBlock(block string) (f Frame, ok bool) {
	if strings.TrimSpace(block) == "" {
		return Frame{}, false
	}

	var (
		event   string
		data    strings.Builder
		hasData bool
		framed  bool
	)

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, eventPrefix):
			event = strings.TrimSpace(line[len(eventPrefix):])
			framed = true
		case strings.HasPrefix(line, dataPrefix):
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(line[len(dataPrefix):])
			hasData = true
			framed = true
		}
	}

	if !framed {
		return Frame{Data: block}, true
	}
	if event == "" && !hasData {
		return Frame{}, false
	}
	if event == "" {
		event = EventMessage
	}
	return Frame{Event: event, Data: data.String()}, true
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode writes a frame in wire form, terminated by a blank line.
// Data values are written without a space after the colon so decoding
// returns them unchanged.
func Encode(f Frame) []byte {
	var buf bytes.Buffer
	if f.Event != "" {
		buf.WriteString(eventPrefix)
		buf.WriteString(f.Event)
		buf.WriteByte('\n')
	}
	for _, line := range strings.Split(f.Data, "\n") {
		buf.WriteString(dataPrefix)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
