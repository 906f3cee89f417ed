// Package ratelimit provides a fixed-window, in-memory rate limiter keyed
// by authenticated user and operation scope.
package ratelimit

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Scopes with independent budgets. Reads are cheap and cached, so they get
// a higher allowance than mutations.
const (
	ScopeExpenseMutation = "expense-mutation"
	ScopeSummaryRead     = "summary-read"
)

// ErrLimited is returned when a user exhausts a scope's budget for the
// current window.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter tracks request counts per (user, scope) in fixed one-minute
// windows. Entries idle past the stale cutoff are dropped by a background
// cleanup goroutine.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	limitHits    int64

	limits          map[string]int
	cleanupInterval time.Duration
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

// Config holds the per-scope budgets (requests per minute) and the cleanup
// cadence.
type Config struct {
	Limits          map[string]int
	CleanupInterval time.Duration
}

// DefaultConfig returns the standard budgets.
func DefaultConfig() Config {
	return Config{
		Limits: map[string]int{
			ScopeExpenseMutation: 30,
			ScopeSummaryRead:     60,
		},
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if len(config.Limits) == 0 {
		config.Limits = def.Limits
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:         make(map[string]*clientInfo),
		stopCleanup:     make(chan struct{}),
		limits:          config.Limits,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.startCleanup()
	return rl
}

func key(userID int64, scope string) string {
	return strconv.FormatInt(userID, 10) + ":" + scope
}

// Allow records one request for the user in the given scope and reports
// whether it fits the window's budget. Unknown scopes are unlimited.
func (rl *Limiter) Allow(userID int64, scope string) bool {
	limit, ok := rl.limits[scope]
	if !ok {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	k := key(userID, scope)
	client, exists := rl.clients[k]

	if !exists {
		rl.clients[k] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	if client.requests > limit {
		atomic.AddInt64(&rl.limitHits, 1)
		return false
	}
	return true
}

// Check is Allow with an error: it returns ErrLimited (wrapped with the
// scope) when the budget is exhausted.
func (rl *Limiter) Check(userID int64, scope string) error {
	if !rl.Allow(userID, scope) {
		return fmt.Errorf("%w for %s", ErrLimited, scope)
	}
	return nil
}

// startCleanup runs periodic cleanup to remove stale client entries.
func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes entries older than 10 minutes.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for k, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, k)
		}
	}
}

// ActiveClients returns the number of currently tracked (user, scope) pairs.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// LimitHits returns how many requests have been rejected so far.
func (rl *Limiter) LimitHits() int64 {
	return atomic.LoadInt64(&rl.limitHits)
}

// Stop gracefully shuts down the cleanup goroutine.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
