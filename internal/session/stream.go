// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"io"

	"github.com/jeranaias/rigrun-chat/internal/router"
	"github.com/jeranaias/rigrun-chat/internal/sse"
	"github.com/jeranaias/rigrun-chat/internal/transcript"
)

// consume reads body to the end, applying frames while gen is current.
func (s *Session) consume(gen uint64, body io.ReadCloser) error {
	defer body.Close()

	dec := sse.NewDecoder()
	buf := make([]byte, s.bufSize)
	for {
		n, err := body.Read(buf)
		if n > 0 && !s.apply(gen, dec.Feed(buf[:n])) {
			return ErrSuperseded
		}
		if errors.Is(err, io.EOF) {
			if rest := dec.Buffered(); rest != "" {
				s.log.Debug().Int("bytes", len(rest)).Msg("stream ended mid-frame")
			}
			if !s.apply(gen, dec.Flush()) {
				return ErrSuperseded
			}
			return s.end(gen)
		}
		if err != nil {
			return s.fail(gen, err)
		}
	}
}

// apply routes frames into the reducer in order. It returns false once gen
// is no longer current; remaining frames are dropped.
func (s *Session) apply(gen uint64, frames []sse.Frame) bool {
	for _, f := range frames {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return false
		}
		action := router.Route(f, s.state.RouterState(), s.log)
		ev := s.state.Apply(action)
		s.mu.Unlock()

		if ev.Kind != transcript.EventNone || ev.ElicitationCancelled {
			s.notify(Update{Kind: UpdateFrame, Event: ev})
		}
	}
	return true
}

// end settles the transcript after a clean end of stream.
func (s *Session) end(gen uint64) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if s.state.EndOfStream() {
		s.log.Debug().Msg("stream closed without done")
	}
	s.release(gen)
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateStreamEnded})
	return nil
}

// fail applies a stream failure and returns err for the caller to show.
func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	err = s.state.StreamFailed(err)
	s.release(gen)
	s.mu.Unlock()

	s.log.Warn().Err(err).Msg("stream failed")
	s.notify(Update{Kind: UpdateStreamFailed, Err: err})
	return err
}
