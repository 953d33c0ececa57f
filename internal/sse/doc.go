// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the server-sent-events framing used by the chat
// backend's streaming endpoints.
//
// A stream is a sequence of blocks separated by a blank line. Within a
// block, an "event:" line names the frame and "data:" lines carry its
// payload; several data lines are joined with a newline. A block with data
// but no name is a "message" frame.
//
//	dec := sse.NewDecoder()
//	for {
//	    n, err := body.Read(buf)
//	    for _, f := range dec.Feed(buf[:n]) {
//	        handle(f)
//	    }
//	    if err != nil {
//	        break
//	    }
//	}
//	for _, f := range dec.Flush() {
//	    handle(f)
//	}
//
// Blocks that carry no event or data lines at all are returned as unframed
// frames (empty Event, raw block text as Data) so servers that stream plain
// text still reach the transcript.
package sse
