// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver is a local stand-in for the chat backend.
//
// It serves the same streaming and history endpoints as the real API with
// scripted replies: the user's message is echoed back in small chunks
// followed by a done frame. A message containing "confirm" pauses with an
// elicitation asking for a yes/no answer, and the answer resumes the reply.
//
// Chats live in memory. Request metrics are exposed on /metrics.
package mockserver
