// ABOUTME: Tests for the TTL cache
// ABOUTME: Covers set/get, expiry, custom TTL, sweeping and shutdown

package cache

import (
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New[string](time.Second, time.Minute)
	defer c.Close()

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	if !found {
		t.Error("Expected to find key1")
	}
	if val != "value1" {
		t.Errorf("Expected value1, got %v", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New[string](100*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("key1", "value1")

	if _, found := c.Get("key1"); !found {
		t.Error("Expected to find key1 immediately")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be expired")
	}
}

func TestCache_SetWithTTL(t *testing.T) {
	c := New[int](time.Hour, time.Minute)
	defer c.Close()

	c.SetWithTTL("short", 1, 50*time.Millisecond)
	c.Set("long", 2)

	time.Sleep(80 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("Expected short-lived entry to expire")
	}
	if v, found := c.Get("long"); !found || v != 2 {
		t.Errorf("Expected long-lived entry, got %v, %v", v, found)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string](time.Second, time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Clear("key1")

	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be cleared")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := New[string](20*time.Millisecond, 10*time.Millisecond)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	time.Sleep(60 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("Expected sweep to empty the cache, %d left", n)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[string](time.Second, time.Millisecond)
	c.Close()
	c.Close()
}
