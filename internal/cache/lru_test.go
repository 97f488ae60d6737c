package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a to survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUPerEntryTTL(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)
	c.SetWithTTL("short", "x", time.Millisecond)
	c.Set("long", "y")
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Fatalf("short entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatalf("long entry should be present")
	}
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)
	time.Sleep(5 * time.Millisecond)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100)
	for _, k := range []string{"budgets:u1:page:1", "budgets:u1:page:2", "budgets:u2:page:1", "budget_summary:u1"} {
		if err := s.Set(ctx, k, []byte("{}"), time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	n, err := s.DeletePrefix(ctx, BudgetListPrefix("u1"))
	if err != nil || n != 2 {
		t.Fatalf("DeletePrefix = %d, %v", n, err)
	}
	if _, ok, _ := s.Get(ctx, "budgets:u2:page:1"); !ok {
		t.Fatalf("other user's key must survive")
	}
	if _, ok, _ := s.Get(ctx, "budget_summary:u1"); !ok {
		t.Fatalf("unrelated key must survive")
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(2 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	if c.Size() != 0 {
		t.Fatalf("expected expired entry to be cleaned, size=%d", c.Size())
	}
}
