// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport is the HTTP adapter for the chat backend.
//
// Endpoints, relative to the configured API base:
//
//	POST /streaming/chats/users/{userId}                              new chat (stream)
//	PUT  /streaming/chats/{chatId}                                    continue chat (stream)
//	POST /streaming/chats/{chatId}/{elicitationId}/elicitation-response  resume (stream)
//	GET  /chats/{chatId}                                              chat history
//	GET  /chats/users/{userId}                                        chat list
//
// Streaming calls return the raw response body; decoding is left to the
// caller. Only the elicitation resume call bounds the wait for the first
// byte of the response.
package transport
