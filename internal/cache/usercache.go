package cache

import (
	"strconv"
	"sync"
	"time"
)

// UserCache keys entries by (user id, filter signature) and maintains a
// secondary index from user id to that user's active keys, so invalidating
// a user touches only their entries instead of scanning the whole cache.
//
// Invalidation is deliberately coarse: any expense mutation drops every
// cached summary for that user. Summaries are cheap to recompute and this
// guarantees a post-mutation read never sees stale data. A read already in
// flight when the mutation lands may still return the pre-mutation result,
// but SetAt keeps it from being cached past the invalidation.
type UserCache[T any] struct {
	mu     sync.Mutex
	inner  *LRUCache[T]
	byUser map[int64]map[string]struct{}
	gens   map[int64]uint64
	allGen uint64
}

// NewUserCache creates a user-indexed cache with the given capacity and TTL.
func NewUserCache[T any](maxSize int, ttl time.Duration) *UserCache[T] {
	return &UserCache[T]{
		inner:  NewLRUCache[T](maxSize, ttl),
		byUser: make(map[int64]map[string]struct{}),
		gens:   make(map[int64]uint64),
	}
}

func entryKey(userID int64, signature string) string {
	return strconv.FormatInt(userID, 10) + ":" + signature
}

// Get returns the cached value for a user's filter signature, if present
// and unexpired.
func (c *UserCache[T]) Get(userID int64, signature string) (T, bool) {
	return c.inner.Get(entryKey(userID, signature))
}

// Generation returns the user's invalidation generation. Capture it before
// reading the backing store and hand it to SetAt, so a value computed from
// pre-invalidation data gets discarded instead of cached.
func (c *UserCache[T]) Generation(userID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID] + c.allGen
}

// SetAt stores a value only if the user has not been invalidated since gen
// was captured, and reports whether the value was stored.
func (c *UserCache[T]) SetAt(userID int64, signature string, data T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID]+c.allGen != gen {
		return false
	}
	c.set(userID, signature, data)
	return true
}

// set writes through to the inner cache while c.mu is held, so a concurrent
// invalidation cannot slip between the index update and the value write.
func (c *UserCache[T]) set(userID int64, signature string, data T) {
	key := entryKey(userID, signature)
	keys, ok := c.byUser[userID]
	if !ok {
		keys = make(map[string]struct{})
		c.byUser[userID] = keys
	}
	keys[key] = struct{}{}
	c.inner.Set(key, data)
}

// InvalidateUser drops every cached entry belonging to the user, advances
// their generation, and returns the number of keys removed from the index.
// Index entries whose values already expired or were LRU-evicted delete as
// no-ops.
func (c *UserCache[T]) InvalidateUser(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byUser[userID]
	delete(c.byUser, userID)
	c.gens[userID]++
	for key := range keys {
		c.inner.Delete(key)
	}
	return len(keys)
}

// InvalidateAll drops every entry for every user. Used when shared data
// (like a category) changes under all users at once.
func (c *UserCache[T]) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byUser = make(map[int64]map[string]struct{})
	c.allGen++
	return c.inner.Clear()
}

// CleanExpired removes expired entries from the underlying cache.
func (c *UserCache[T]) CleanExpired() int {
	return c.inner.CleanExpired()
}

// Size returns the number of live entries.
func (c *UserCache[T]) Size() int {
	return c.inner.Size()
}
