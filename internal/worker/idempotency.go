// In-memory idempotency cache for the worker server base.
//
// The cache maps a caller-supplied requestId to the first response computed
// for it: the exact JSON bytes and the HTTP status code. Any repeated call
// within the TTL replays that response verbatim without re-invoking the
// operation. Entries are never overwritten; they expire lazily on read and
// are reclaimed by a periodic sweep, never by a timer per entry.
//
// The entry is written only after a response is fully computed, so two
// concurrent first calls for the same fresh requestId may both execute the
// operation. That race is accepted: idempotency here is a best-effort dedupe
// for retries, not a mutual-exclusion lock.
package worker

import (
	"context"
	"sync"
	"time"
)

// cachedResponse is a completed response held for replay.
type cachedResponse struct {
	status    int
	body      []byte
	expiresAt time.Time
}

// IdempotencyCache is a TTL-bounded requestId → response store. Safe for
// concurrent use.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]cachedResponse

	ttl   time.Duration
	sweep time.Duration
	now   func() time.Time // test seam
}

// NewIdempotencyCache constructs a cache with the given entry TTL and sweep
// interval. Non-positive values fall back to 60s / 30s.
func NewIdempotencyCache(ttl, sweep time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if sweep <= 0 {
		sweep = 30 * time.Second
	}
	return &IdempotencyCache{
		entries: make(map[string]cachedResponse),
		ttl:     ttl,
		sweep:   sweep,
		now:     time.Now,
	}
}

// Lookup returns the cached response for requestID when a live entry exists.
// Expired entries are removed on the spot.
func (c *IdempotencyCache) Lookup(requestID string) (status int, body []byte, ok bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[requestID]
	if !found {
		return 0, nil, false
	}
	if now.After(e.expiresAt) {
		delete(c.entries, requestID)
		return 0, nil, false
	}
	return e.status, e.body, true
}

// Store records the first fully-computed response for requestID. If an entry
// already exists it is left untouched: the first response wins and later
// writers (the losers of a duplicate-execution race) are ignored.
func (c *IdempotencyCache) Store(requestID string, status int, body []byte) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, found := c.entries[requestID]; found && now.Before(e.expiresAt) {
		return
	}
	c.entries[requestID] = cachedResponse{
		status:    status,
		body:      body,
		expiresAt: now.Add(c.ttl),
	}
}

// Len reports the current number of entries, expired or not.
func (c *IdempotencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run sweeps expired entries on a ticker until ctx is cancelled. Lazy expiry
// in Lookup keeps correctness; the sweep only bounds memory between reads.
func (c *IdempotencyCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-ctx.Done():
			return
		}
	}
}

// sweepExpired drops every entry past its deadline.
func (c *IdempotencyCache) sweepExpired() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	n := len(c.entries)
	c.mu.Unlock()
	idempotencyCacheSize.Set(float64(n))
}
