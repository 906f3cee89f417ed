package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func newTestLimiter(limits map[string]int) *Limiter {
	return NewLimiter(Config{Limits: limits, CleanupInterval: time.Hour})
}

func TestAllowWithinBudget(t *testing.T) {
	rl := newTestLimiter(map[string]int{ScopeSummaryRead: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow(1, ScopeSummaryRead) {
			t.Fatalf("request %d rejected under budget", i+1)
		}
	}
	if rl.Allow(1, ScopeSummaryRead) {
		t.Fatal("request over budget allowed")
	}
	if rl.LimitHits() != 1 {
		t.Errorf("LimitHits = %d, want 1", rl.LimitHits())
	}
}

func TestScopesAreIndependent(t *testing.T) {
	rl := newTestLimiter(map[string]int{
		ScopeExpenseMutation: 1,
		ScopeSummaryRead:     1,
	})
	defer rl.Stop()

	if !rl.Allow(1, ScopeExpenseMutation) {
		t.Fatal("first mutation rejected")
	}
	if rl.Allow(1, ScopeExpenseMutation) {
		t.Fatal("second mutation allowed")
	}
	// Exhausting mutations does not touch the read budget.
	if !rl.Allow(1, ScopeSummaryRead) {
		t.Fatal("read rejected after mutation budget exhausted")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	rl := newTestLimiter(map[string]int{ScopeSummaryRead: 1})
	defer rl.Stop()

	if !rl.Allow(1, ScopeSummaryRead) {
		t.Fatal("user 1 first request rejected")
	}
	if rl.Allow(1, ScopeSummaryRead) {
		t.Fatal("user 1 second request allowed")
	}
	if !rl.Allow(2, ScopeSummaryRead) {
		t.Fatal("user 2 blocked by user 1's budget")
	}
}

func TestUnknownScopeUnlimited(t *testing.T) {
	rl := newTestLimiter(map[string]int{ScopeSummaryRead: 1})
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		if !rl.Allow(1, "healthcheck") {
			t.Fatal("unregistered scope was limited")
		}
	}
}

func TestCheckReturnsErrLimited(t *testing.T) {
	rl := newTestLimiter(map[string]int{ScopeExpenseMutation: 1})
	defer rl.Stop()

	if err := rl.Check(1, ScopeExpenseMutation); err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	err := rl.Check(1, ScopeExpenseMutation)
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("error = %v, want ErrLimited", err)
	}
}

func TestCleanupRemovesStaleEntries(t *testing.T) {
	rl := newTestLimiter(map[string]int{ScopeSummaryRead: 10})
	defer rl.Stop()

	rl.Allow(1, ScopeSummaryRead)
	rl.Allow(2, ScopeSummaryRead)
	if rl.ActiveClients() != 2 {
		t.Fatalf("ActiveClients = %d, want 2", rl.ActiveClients())
	}

	rl.mu.Lock()
	for _, c := range rl.clients {
		c.lastRequest = time.Now().Add(-time.Hour)
	}
	rl.mu.Unlock()

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 0 {
		t.Fatalf("ActiveClients = %d after cleanup, want 0", rl.ActiveClients())
	}
}
