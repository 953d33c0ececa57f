// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// blockDelimiter ends one block.
const blockDelimiter = "\n\n"

// decodeBufSize is the scratch size for one UTF-8 transform pass.
const decodeBufSize = 4096

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw stream reads into frames. It keeps two pieces of state
// between calls: bytes of an incomplete UTF-8 sequence, and text after the
// last block delimiter. A Decoder is not safe for concurrent use.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte
	buf     strings.Builder
}

// NewDecoder creates a decoder for one stream.
func NewDecoder() *Decoder {
	return &Decoder{utf8: unicode.UTF8.NewDecoder()}
}

// Feed decodes one read and returns every frame completed by it.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	d.buf.WriteString(d.decode(chunk, false))
	return d.drain()
}

// Flush ends the stream: held-back bytes are decoded (invalid tails become
// U+FFFD) and any remaining text is parsed as a last block.
func (d *Decoder) Flush() []Frame {
	d.buf.WriteString(d.decode(nil, true))
	frames := d.drain()

	rest := d.buf.String()
	d.buf.Reset()
	if f, ok := ParseBlock(rest); ok {
		frames = append(frames, f)
	}
	return frames
}

// Reset discards all buffered state.
func (d *Decoder) Reset() {
	d.utf8.Reset()
	d.pending = d.pending[:0]
	d.buf.Reset()
}

// Buffered returns the text waiting for a block delimiter.
func (d *Decoder) Buffered() string {
	return d.buf.String()
}

// drain extracts complete blocks from the buffer.
func (d *Decoder) drain() []Frame {
	text := d.buf.String()
	if !strings.Contains(text, blockDelimiter) {
		return nil
	}

	var frames []Frame
	for {
		idx := strings.Index(text, blockDelimiter)
		if idx < 0 {
			break
		}
		if f, ok := ParseBlock(text[:idx]); ok {
			frames = append(frames, f)
		}
		text = text[idx+len(blockDelimiter):]
	}

	d.buf.Reset()
	d.buf.WriteString(text)
	return frames
}

// decode runs the incremental UTF-8 decoder over pending bytes plus p.
// An incomplete trailing sequence is kept for the next call unless atEOF.
func (d *Decoder) decode(p []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	d.pending = d.pending[:0]

	if len(src) == 0 {
		return ""
	}

	var out strings.Builder
	dst := make([]byte, decodeBufSize)
	for len(src) > 0 {
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			// Transform consumed everything it could.
			if nSrc == 0 && nDst == 0 {
				src = nil
			}
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append(d.pending, src...)
			src = nil
		default:
			src = nil
		}
	}
	return out.String()
}
