// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// =============================================================================
// GUARD
// =============================================================================

func TestGuard_BlocksAfterMaxFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuard(3, 5*time.Minute)
	g.now = func() time.Time { return now }

	assert.False(t, g.Failure())
	assert.False(t, g.Failure())
	assert.False(t, g.Blocked())
	assert.True(t, g.Failure(), "third failure blocks")
	assert.True(t, g.Blocked())

	now = now.Add(5 * time.Minute)
	assert.False(t, g.Blocked(), "budget refills after the block duration")
}

func TestGuard_SuccessResets(t *testing.T) {
	g := NewGuard(2, time.Hour)
	g.Failure()
	g.Failure()
	require.True(t, g.Blocked())

	g.Success()
	assert.False(t, g.Blocked())
}

func TestGuard_Nil(t *testing.T) {
	var g *Guard
	assert.False(t, g.Failure())
	assert.False(t, g.Blocked())
	g.Success()
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

func TestStatic_TokenAndUserID(t *testing.T) {
	ctx := context.Background()
	token := signedToken(t, "user-42")

	p := NewStatic(token, "", nil, zerolog.Nop())
	got, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	uid, err := p.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-42", uid, "user id from the sub claim")

	p = NewStatic(token, "configured", nil, zerolog.Nop())
	uid, err = p.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "configured", uid)
}

func TestStatic_Errors(t *testing.T) {
	ctx := context.Background()

	p := NewStatic("  ", "", nil, zerolog.Nop())
	_, err := p.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = p.UserID(ctx)
	assert.ErrorIs(t, err, ErrNoUserID)

	p = NewStatic("opaque-token", "", nil, zerolog.Nop())
	_, err = p.UserID(ctx)
	assert.ErrorIs(t, err, ErrNoUserID, "opaque tokens carry no subject")
}

func TestStatic_BlockedAfterAuthErrors(t *testing.T) {
	p := NewStatic("tok", "u", NewGuard(2, time.Hour), zerolog.Nop())
	p.OnAuthError(errors.New("401"))
	p.OnAuthError(errors.New("401"))

	_, err := p.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestNew_Backends(t *testing.T) {
	p, err := New(Options{Token: "t"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Static{}, p)

	_, err = New(Options{Backend: "cognito"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Options{Backend: BackendFile}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoToken)
}

// =============================================================================
// FILE PROVIDER
// =============================================================================

func TestFile_ReadsAndReloads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte(signedToken(t, "alice")+"\n"), 0600))

	p, err := NewFile(path, "", NewGuard(3, time.Hour), zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	uid, err := p.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)

	next := signedToken(t, "bob")
	require.NoError(t, os.WriteFile(path, []byte(next), 0600))

	assert.Eventually(t, func() bool {
		got, err := p.AccessToken(ctx)
		return err == nil && got == next
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFile_MissingFile(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "absent"), "", nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestFile_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("tok"), 0600))
	p, err := NewFile(path, "u", nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
