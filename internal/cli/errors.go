// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes for rigchat commands.
//
// Commands always return errors; Run decides how to show them and which
// exit code to use.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/rigrun-chat/internal/auth"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
	ExitNeedsInput   = 9
	ExitInterrupted  = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command usage.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a usage error.
func NewUsageError(msg string) error {
	return &UsageError{Message: msg}
}

// ErrMissingArgument returns a usage error for a missing positional argument.
func ErrMissingArgument(argName, usage string) error {
	return NewUsageError(fmt.Sprintf("missing %s\n\nUsage: %s", argName, usage))
}

// ErrNeedsInput is returned by ask when the backend asks a question that
// cannot be answered non-interactively.
var ErrNeedsInput = errors.New("the assistant needs more input")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON response in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse("", err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "Set a token with --token, RIGCHAT_TOKEN or auth.token in the config file."
	case errors.Is(err, auth.ErrNoUserID):
		return "Set auth.user_id or use a token that carries a subject claim."
	case errors.Is(err, auth.ErrBlocked):
		return "Too many rejected attempts; wait a few minutes before retrying."
	case errors.Is(err, transport.ErrUnauthorized):
		return "The backend rejected the token."
	case errors.Is(err, ErrNeedsInput):
		return "Rerun with --answer accept|decline|cancel or use the interactive chat."
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Is the backend running? Check --api-url."
	}
	return ""
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var verrs config.ValidateErrors
	var netErr net.Error
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrNoUserID),
		errors.Is(err, auth.ErrBlocked), errors.Is(err, transport.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, transport.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, transport.ErrFirstByteTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, ErrNeedsInput):
		return ExitNeedsInput
	case errors.Is(err, session.ErrSuperseded), errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &netErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}
