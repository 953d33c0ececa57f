// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxFailures is the failure budget before blocking.
	DefaultMaxFailures = 3

	// DefaultBlockDuration is how long the budget takes to refill.
	DefaultBlockDuration = 5 * time.Minute
)

// Guard blocks token issuance after repeated failures. Each failure spends
// one token from a bucket of maxFailures that refills one token per block
// duration; an empty bucket means blocked. A nil Guard never blocks.
type Guard struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxFailures int
	every       time.Duration
	now         func() time.Time
}

// NewGuard creates a guard. Non-positive values use the defaults.
func NewGuard(maxFailures int, blockDuration time.Duration) *Guard {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	return &Guard{
		limiter:     rate.NewLimiter(rate.Every(blockDuration), maxFailures),
		maxFailures: maxFailures,
		every:       blockDuration,
		now:         time.Now,
	}
}

// Failure records one failure and reports whether the guard is now blocked.
func (g *Guard) Failure() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.limiter.AllowN(now, 1)
	return g.limiter.TokensAt(now) < 1
}

// Success refills the failure budget.
func (g *Guard) Success() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiter = rate.NewLimiter(rate.Every(g.every), g.maxFailures)
}

// Blocked reports whether the failure budget is exhausted.
func (g *Guard) Blocked() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiter.TokensAt(g.now()) < 1
}
