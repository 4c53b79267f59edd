package cache

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := New[int](time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected a miss for an unknown key")
	}

	c.Set("a", 1)

	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("got %d ok=%v, want 1 true", got, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New[string](10 * time.Millisecond)

	c.Set("a", "x")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected the entry to expire")
	}
}

func TestCacheClear(t *testing.T) {
	c := New[int](time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected clear to drop all entries")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected clear to drop all entries")
	}
}
