// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// Format names accepted by ExporterFor.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("conversation has no messages")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a document to the target format.
	Export(doc *Document) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ExporterFor returns the exporter for a format name ("md", "markdown" or
// "json").
func ExporterFor(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", FormatMarkdown, "markdown":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format %q (want md or json)", format)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the exportable part of a transcript.
type Document struct {
	Title      string              `json:"title"`
	ChatID     string              `json:"chatId,omitempty"`
	ExportedAt time.Time           `json:"exportedAt"`
	Messages   []model.MessageView `json:"messages"`
}

// FromSnapshot builds a document from the non-ephemeral messages of snap.
// An empty title is derived from the first user message.
func FromSnapshot(snap model.Snapshot, title string) *Document {
	msgs := snap.Conversation()
	if title == "" {
		title = deriveTitle(msgs)
	}
	return &Document{
		Title:      title,
		ChatID:     snap.ChatID,
		ExportedAt: time.Now(),
		Messages:   msgs,
	}
}

func deriveTitle(msgs []model.MessageView) string {
	for _, m := range msgs {
		if m.Role == model.RoleUser && strings.TrimSpace(m.Text) != "" {
			return util.TruncateRunes(util.FirstLine(strings.TrimSpace(m.Text)), 60)
		}
	}
	return "Conversation"
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where generated file names are placed.
	OutputDir string

	// IncludeMetadata adds a front matter header and per-message model names.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports doc and writes it atomically. An empty path picks a
// timestamped name in opts.OutputDir. It returns the written path.
func ToFile(doc *Document, exporter Exporter, opts *Options, path string) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if path == "" {
		filename := fmt.Sprintf("conversation_%s_%s%s",
			sanitizeFilename(doc.Title),
			doc.ExportedAt.Format("20060102_150405"),
			exporter.FileExtension(),
		)
		path = filepath.Join(opts.OutputDir, filename)
	}

	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)
	s = strings.TrimSuffix(s, "...")

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
