// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// FILE PROVIDER
// =============================================================================

// File serves a token read from disk. The file is re-read whenever it is
// written, created or renamed into place, so an external login helper can
// refresh credentials while a session is running.
type File struct {
	path   string
	userID string
	guard  *Guard
	log    zerolog.Logger

	mu    sync.RWMutex
	token string

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewFile reads the token file and starts watching it.
func NewFile(path, userID string, guard *Guard, log zerolog.Logger) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("auth file backend: %w", ErrNoToken)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("token file path: %w", err)
	}

	f := &File{
		path:   abs,
		userID: userID,
		guard:  guard,
		log:    log.With().Str("component", "auth").Str("backend", BackendFile).Logger(),
		done:   make(chan struct{}),
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch token file: %w", err)
	}
	// Watch the directory: editors and login helpers replace the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch token file: %w", err)
	}
	f.watcher = watcher
	go f.watch()
	return f, nil
}

// Reload re-reads the token file.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))

	f.mu.Lock()
	changed := token != f.token
	f.token = token
	f.mu.Unlock()

	if changed && token != "" {
		f.guard.Success()
		f.log.Debug().Msg("token reloaded")
	}
	return nil
}

func (f *File) watch() {
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.Reload(); err != nil {
				f.log.Warn().Err(err).Msg("token reload failed")
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn().Err(err).Msg("token watcher error")
		}
	}
}

// Close stops watching the file.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		if f.watcher != nil {
			err = f.watcher.Close()
		}
	})
	return err
}

// AccessToken implements Provider.
func (f *File) AccessToken(ctx context.Context) (string, error) {
	if f.guard.Blocked() {
		return "", ErrBlocked
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.token == "" {
		return "", ErrNoToken
	}
	return f.token, nil
}

// UserID implements Provider.
func (f *File) UserID(ctx context.Context) (string, error) {
	f.mu.RLock()
	token := f.token
	f.mu.RUnlock()
	return resolveUserID(f.userID, token)
}

// OnAuthError implements Provider. The file is re-read in case it was
// refreshed without a change notification.
func (f *File) OnAuthError(err error) {
	blocked := f.guard.Failure()
	f.log.Warn().Err(err).Bool("blocked", blocked).Msg("credentials rejected")
	if rerr := f.Reload(); rerr != nil {
		f.log.Warn().Err(rerr).Msg("token reload failed")
	}
}
