package worker

import (
	"testing"
	"time"
)

func TestCacheMissOnUnknownID(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	if _, _, ok := c.Lookup("nope"); ok {
		t.Fatal("expected miss for unknown request id")
	}
}

func TestCacheStoreAndReplay(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	c.Store("r1", 200, []byte(`{"status":"joined"}`))

	status, body, ok := c.Lookup("r1")
	if !ok {
		t.Fatal("expected hit")
	}
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if string(body) != `{"status":"joined"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestCacheFirstResponseWins(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	c.Store("r1", 200, []byte(`first`))
	c.Store("r1", 500, []byte(`second`))

	status, body, _ := c.Lookup("r1")
	if status != 200 || string(body) != "first" {
		t.Fatalf("got %d %s, want the first stored response", status, body)
	}
}

func TestCacheLazyExpiry(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Store("r1", 200, []byte(`x`))

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	if _, _, ok := c.Lookup("r1"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be deleted on read, len = %d", c.Len())
	}
}

func TestCacheExpiredSlotIsReusable(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Store("r1", 200, []byte(`old`))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Store("r1", 201, []byte(`new`))

	status, body, ok := c.Lookup("r1")
	if !ok || status != 201 || string(body) != "new" {
		t.Fatalf("got %v %d %s, want fresh entry after expiry", ok, status, body)
	}
}

func TestCacheSweep(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Store("r1", 200, []byte(`a`))
	c.Store("r2", 200, []byte(`b`))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Store("r3", 200, []byte(`c`))
	c.sweepExpired()

	if c.Len() != 1 {
		t.Fatalf("len = %d after sweep, want 1", c.Len())
	}
	if _, _, ok := c.Lookup("r3"); !ok {
		t.Fatal("live entry lost in sweep")
	}
}
