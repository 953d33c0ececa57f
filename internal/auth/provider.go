// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Backend names accepted in configuration.
const (
	BackendStatic = "static"
	BackendFile   = "file"
)

var (
	// ErrNoToken is returned when no access token is available.
	ErrNoToken = errors.New("no access token configured")

	// ErrNoUserID is returned when the user id is neither configured nor
	// present in the token.
	ErrNoUserID = errors.New("user id unavailable")

	// ErrBlocked is returned while too many recent auth failures block access.
	ErrBlocked = errors.New("authentication blocked after repeated failures")
)

// Provider is the token capability handed to the transport.
type Provider interface {
	// AccessToken returns the bearer token for the next request.
	AccessToken(ctx context.Context) (string, error)

	// UserID returns the id of the signed-in user.
	UserID(ctx context.Context) (string, error)

	// OnAuthError reports that the backend rejected the current credentials.
	OnAuthError(err error)
}

// Options configures a provider.
type Options struct {
	Backend   string
	Token     string
	TokenFile string
	UserID    string

	// MaxFailures within BlockDuration before tokens are withheld.
	MaxFailures   int
	BlockDuration time.Duration
}

// New builds the provider selected by opts.Backend.
func New(opts Options, log zerolog.Logger) (Provider, error) {
	guard := NewGuard(opts.MaxFailures, opts.BlockDuration)
	switch opts.Backend {
	case "", BackendStatic:
		return NewStatic(opts.Token, opts.UserID, guard, log), nil
	case BackendFile:
		f, err := NewFile(opts.TokenFile, opts.UserID, guard, log)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown auth backend %q", opts.Backend)
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// Static serves a fixed token.
type Static struct {
	token  string
	userID string
	guard  *Guard
	log    zerolog.Logger
}

// NewStatic creates a static provider. A nil guard never blocks.
func NewStatic(token, userID string, guard *Guard, log zerolog.Logger) *Static {
	return &Static{
		token:  strings.TrimSpace(token),
		userID: userID,
		guard:  guard,
		log:    log.With().Str("component", "auth").Str("backend", BackendStatic).Logger(),
	}
}

// AccessToken implements Provider.
func (s *Static) AccessToken(ctx context.Context) (string, error) {
	if s.guard.Blocked() {
		return "", ErrBlocked
	}
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// UserID implements Provider.
func (s *Static) UserID(ctx context.Context) (string, error) {
	return resolveUserID(s.userID, s.token)
}

// OnAuthError implements Provider.
func (s *Static) OnAuthError(err error) {
	blocked := s.guard.Failure()
	s.log.Warn().Err(err).Bool("blocked", blocked).Msg("credentials rejected")
}

// =============================================================================
// USER ID
// =============================================================================

// SubjectFromToken returns the "sub" claim of a JWT without verifying its
// signature. The backend verifies tokens; the client only reads the claim.
func SubjectFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token subject: %w", err)
	}
	if sub == "" {
		return "", ErrNoUserID
	}
	return sub, nil
}

func resolveUserID(configured, token string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if token == "" {
		return "", ErrNoUserID
	}
	sub, err := SubjectFromToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoUserID, err)
	}
	return sub, nil
}
