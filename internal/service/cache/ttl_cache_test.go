package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected 42, got %v %v", v, ok)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry gone")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)
	time.Sleep(2 * time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected zero-ttl entry kept")
	}
}

func TestTTLCacheBytes(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}

	b, ok, err := c.GetBytes("k")
	if err != nil || !ok || string(b) != "payload" {
		t.Fatalf("unexpected result %q %v %v", b, ok, err)
	}

	if _, ok, _ := c.GetBytes("missing"); ok {
		t.Fatalf("expected miss")
	}
}
