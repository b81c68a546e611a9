package ratelimit

import "testing"

func TestAllowConsumesBurst(t *testing.T) {
	l := New()

	if !l.Allow("k", 2, 0) {
		t.Fatalf("expected first call allowed")
	}
	if !l.Allow("k", 2, 0) {
		t.Fatalf("expected second call allowed")
	}
	if l.Allow("k", 2, 0) {
		t.Fatalf("expected bucket exhausted")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	if !l.Allow("a", 1, 0) {
		t.Fatalf("expected a allowed")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("expected a exhausted")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("expected b unaffected")
	}
}
