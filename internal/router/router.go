// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-chat/internal/elicitation"
	"github.com/jeranaias/rigrun-chat/internal/sse"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// maxLoggedPayload caps how much of a bad payload reaches the log.
const maxLoggedPayload = 200

// State is the part of the session the router needs to see.
type State struct {
	ElicitationPending bool
	ChatID             string
}

// Route maps one frame to an action. It never fails: payload errors are
// logged and folded into Finalize or Ignore.
func Route(f sse.Frame, st State, log zerolog.Logger) Action {
	if f.Unframed() {
		return AppendContent{Text: f.Data, CancelElicitation: st.ElicitationPending}
	}

	switch f.Event {
	case sse.EventChunk, sse.EventMessage:
		return AppendContent{Text: f.Data, CancelElicitation: st.ElicitationPending}

	case sse.EventDone:
		resp, err := ParseDone(f.Data)
		if err != nil {
			log.Warn().
				Err(err).
				Str("event", f.Event).
				Str("chat_id", st.ChatID).
				Str("payload", util.TruncateRunes(f.Data, maxLoggedPayload)).
				Msg("malformed done frame, finalizing without content change")
			return Finalize{}
		}
		return Finalize{Response: resp}

	case sse.EventElicitation:
		req, err := elicitation.ParseRequest(f.Data)
		if err != nil {
			log.Warn().
				Err(err).
				Str("event", f.Event).
				Str("chat_id", st.ChatID).
				Str("payload", util.TruncateRunes(f.Data, maxLoggedPayload)).
				Msg("malformed elicitation frame ignored")
			return Ignore{Reason: "malformed elicitation"}
		}
		return OpenElicitation{Request: req}
	}

	log.Debug().Str("event", f.Event).Msg("unrecognized frame ignored")
	return Ignore{Reason: "unrecognized event " + f.Event}
}
