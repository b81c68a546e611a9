package models

import (
	"testing"
	"time"
)

func TestDedupKeyNormalizes(t *testing.T) {
	a := DedupKey("Apple Beats Estimates!!")
	b := DedupKey("apple beats estimates")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
	if a != "applebeatsestimates" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestDedupKeyTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "abc"
	}
	if got := DedupKey(long); len(got) > 64 {
		t.Fatalf("expected truncated key, got len %d", len(got))
	}
}

func TestDedupNewsKeepsFirst(t *testing.T) {
	items := []NewsItem{
		{ID: "1", Title: "Apple Beats Estimates!!"},
		{ID: "2", Title: "apple beats estimates"},
		{ID: "3", Title: "Different story"},
	}
	got := DedupNews(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestDedupNewsEmptyTitleFallsBackToID(t *testing.T) {
	items := []NewsItem{
		{ID: "1", Title: "!!"},
		{ID: "2", Title: "??"},
	}
	got := DedupNews(items)
	if len(got) != 2 {
		t.Fatalf("expected both kept via ID fallback, got %d", len(got))
	}
}

func TestNormalizeRange(t *testing.T) {
	cases := map[string]HistoryRange{
		"1w":      RangeWeek,
		"week":    RangeWeek,
		"1mo":     RangeMonth,
		"month":   RangeMonth,
		"quarter": RangeQuarter,
		"3mo":     RangeQuarter,
		"1year":   RangeYear,
		"max":     RangeMax,
		"":        RangeMonth,
		"bogus":   RangeMonth,
	}
	for in, want := range cases {
		if got := NormalizeRange(in); got != want {
			t.Fatalf("NormalizeRange(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignalExpired(t *testing.T) {
	now := time.Now()
	sig := &TradingSignal{ExpiresAt: now.Add(time.Hour)}
	if sig.Expired(now) {
		t.Fatalf("expected not expired")
	}
	if !sig.Expired(now.Add(2 * time.Hour)) {
		t.Fatalf("expected expired")
	}
}
