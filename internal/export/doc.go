// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to Markdown or JSON.
//
// # Key Types
//
//   - Document: the exportable view of a transcript
//   - Exporter: a format (MarkdownExporter, JSONExporter)
//   - Options: export configuration options
//
// # Usage
//
//	doc := export.FromSnapshot(sess.Snapshot(), "")
//	path, err := export.ToFile(doc, export.NewMarkdownExporter(nil), nil, "")
//
// An empty path writes a timestamped file under Options.OutputDir.
package export
