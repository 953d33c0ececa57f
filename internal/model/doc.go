// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts and messages.
//
// # Key Types
//
//   - Message: one transcript entry with role, accumulating text and streaming flags
//   - Transcript: ordered messages plus the server-assigned chat id
//   - Snapshot: an immutable copy of a Transcript handed to readers
//   - Role: USER, ASSISTANT or SYSTEM
//
// # Usage
//
//	tr := model.NewTranscript()
//	userID, aiID := model.NewTurnIDs()
//	tr.Append(model.NewMessage(userID, model.RoleUser, "hi"))
//	tr.Append(model.NewPlaceholder(aiID))
//	tr.Last().AppendText("Hel")
//
// Messages are always held by pointer; the text buffer must not be copied.
package model
