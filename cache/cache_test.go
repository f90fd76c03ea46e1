package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](clockwork.NewFakeClock(), time.Minute, 10)
	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss on empty cache")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Expected 1, got %v (%v)", v, ok)
	}
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Expected 2, got %v", v)
	}
	if st := c.Stats(); st.Hits != 2 || st.Misses != 1 || st.Size != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string, string](clock, time.Minute, 10)
	c.Set("doc", "summary")

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("doc"); !ok {
		t.Error("Entry should still be live")
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("doc"); ok {
		t.Error("Entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be dropped on access, len %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[int, int](clockwork.NewFakeClock(), time.Hour, 2)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1) // 2 is now least recently used
	c.Set(3, 3)

	if _, ok := c.Get(2); ok {
		t.Error("Expected 2 to be evicted")
	}
	for _, k := range []int{1, 3} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("Expected %d to be kept", k)
		}
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", st.Evictions)
	}
}

func TestPurgeAndDelete(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string, int](clock, time.Minute, 0)
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)
	clock.Advance(45 * time.Second)

	if removed := c.Purge(); removed != 1 {
		t.Errorf("Expected 1 purged, got %d", removed)
	}
	c.Delete("new")
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d", c.Len())
	}
}

func TestDisabled(t *testing.T) {
	c := New[string, int](nil, 0, 10)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("Zero TTL should disable caching")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](clockwork.NewFakeClock(), time.Minute, 50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(j, n)
				c.Get(j)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 50 {
		t.Errorf("Cache grew past its bound: %d", c.Len())
	}
}
