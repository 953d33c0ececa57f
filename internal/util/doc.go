// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the chat client.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe truncation with ellipsis (log payloads, previews)
//   - TruncateWidth, StringWidth, PadRight: terminal-column aware layout
//   - AtomicWriteFile: crash-safe writes for config and exports
package util
