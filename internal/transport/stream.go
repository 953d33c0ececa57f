// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// firstByteReader cancels the request when no byte arrives before the
// timer fires. Once data flows the timer is disarmed for good.
type firstByteReader struct {
	rc     io.ReadCloser
	timer  *time.Timer
	cancel context.CancelFunc

	fired   atomic.Bool
	started bool
	once    sync.Once
}

func newFirstByteReader(timeout time.Duration, cancel context.CancelFunc) *firstByteReader {
	r := &firstByteReader{cancel: cancel}
	r.timer = time.AfterFunc(timeout, func() {
		r.fired.Store(true)
		cancel()
	})
	return r
}

func (r *firstByteReader) expired() bool {
	return r.fired.Load()
}

func (r *firstByteReader) stop() {
	r.once.Do(func() {
		r.timer.Stop()
		r.cancel()
	})
}

// Read implements io.Reader.
func (r *firstByteReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if !r.started {
		if n > 0 && r.timer.Stop() {
			r.started = true
		} else if r.expired() {
			return 0, fmt.Errorf("elicitation resume: %w", ErrFirstByteTimeout)
		}
	}
	return n, err
}

// Close releases the request context and the body.
func (r *firstByteReader) Close() error {
	r.stop()
	return r.rc.Close()
}
