package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get() on empty cache hit")
	}
	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// "b" is now least recently used.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) hit after eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("Stats() = %+v, want 1 hit and 2 misses", st)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clock := newTestCache(10, 30*time.Second)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.advance(29 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) missed before TTL")
	}

	clock.advance(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit at TTL")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("analytics:1:2024-05", "x")
	c.Set("analytics:1:2024-06", "y")
	c.Set("analytics:12:2024-05", "z")

	if n := c.DeletePrefix("analytics:1:"); n != 2 {
		t.Fatalf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("analytics:12:2024-05"); !ok {
		t.Error("DeletePrefix() removed another user's entry")
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}
