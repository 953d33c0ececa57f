// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

var (
	// ErrNoBody is returned when a stream response carries no body.
	ErrNoBody = errors.New("response has no body")

	// ErrFirstByteTimeout is returned when a resume stream sends nothing
	// before the configured timeout.
	ErrFirstByteTimeout = errors.New("timed out waiting for response data")

	// ErrUnauthorized is matched by APIError for 401 and 403 responses.
	ErrUnauthorized = errors.New("credentials rejected")

	// ErrNotFound is matched by APIError for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrMissingID is returned when a call needs an id the caller lacks.
	ErrMissingID = errors.New("missing identifier")
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 * 1024

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + util.TruncateRunes(util.FirstLine(e.Body), 200)
	}
	return msg
}

// Unwrap maps well-known statuses onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}
