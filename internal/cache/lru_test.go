package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "alpha" {
		t.Errorf("got %q, want %q", got, "alpha")
	}
}

func TestLRUCacheSetReplacesExisting(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)

	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
	if got, _ := c.Get("a"); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 25*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after TTL")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0 after lazy removal", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-there")

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Delete")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestLRUCacheFlush(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()

	if c.Size() != 0 {
		t.Errorf("size = %d, want 0 after Flush", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after Flush")
	}

	// The cache stays usable.
	c.Set("c", 3)
	if got, ok := c.Get("c"); !ok || got != 3 {
		t.Errorf("got %d (hit=%v), want 3", got, ok)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 25*time.Millisecond)

	c.Set("old", 1)
	time.Sleep(50 * time.Millisecond)
	c.Set("fresh", 2)

	removed := c.CleanExpired()
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should have survived")
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	c.Set("a", 1)

	deadline := time.Now().Add(time.Second)
	for c.Size() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep never removed the expired entry")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
