package newsfeed

import (
	"context"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

func testSupplier(t *testing.T) *Supplier {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	// No base URL: the REST path is disabled and only ingestion serves.
	return New("", "", nil, time.Minute, l)
}

func TestIngestFansOutToSymbols(t *testing.T) {
	s := testSupplier(t)

	s.Ingest(models.NewsItem{
		Title:       "Joint venture announced",
		Symbols:     []string{"AAPL", "MSFT"},
		PublishedAt: time.Now(),
	})

	for _, sym := range []string{"AAPL", "MSFT"} {
		items, err := s.GetNewsForSymbol(context.Background(), sym)
		if err != nil {
			t.Fatalf("%s: %v", sym, err)
		}
		if len(items) != 1 {
			t.Fatalf("%s: expected 1 item, got %d", sym, len(items))
		}
	}
}

func TestIngestDeduplicatesByTitle(t *testing.T) {
	s := testSupplier(t)
	now := time.Now()

	s.Ingest(
		models.NewsItem{Title: "Apple Beats Estimates!!", Symbols: []string{"AAPL"}, PublishedAt: now},
		models.NewsItem{Title: "apple beats estimates", Symbols: []string{"AAPL"}, PublishedAt: now},
	)

	items, err := s.GetNewsForSymbol(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetNewsForSymbol: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected dedup to 1 item, got %d", len(items))
	}
}

func TestIngestDropsStaleItems(t *testing.T) {
	s := testSupplier(t)

	s.Ingest(
		models.NewsItem{Title: "old story", Symbols: []string{"AAPL"}, PublishedAt: time.Now().AddDate(0, 0, -30)},
		models.NewsItem{Title: "fresh story", Symbols: []string{"AAPL"}, PublishedAt: time.Now()},
	)

	items, err := s.GetNewsForSymbol(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetNewsForSymbol: %v", err)
	}
	if len(items) != 1 || items[0].Title != "fresh story" {
		t.Fatalf("expected only fresh item, got %+v", items)
	}
}

func TestGetNewsNewestFirst(t *testing.T) {
	s := testSupplier(t)
	now := time.Now()

	s.Ingest(
		models.NewsItem{Title: "first", Symbols: []string{"AAPL"}, PublishedAt: now.Add(-2 * time.Hour)},
		models.NewsItem{Title: "second", Symbols: []string{"AAPL"}, PublishedAt: now.Add(-1 * time.Hour)},
		models.NewsItem{Title: "third", Symbols: []string{"AAPL"}, PublishedAt: now},
	)

	items, err := s.GetNewsForSymbol(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetNewsForSymbol: %v", err)
	}
	if len(items) != 3 || items[0].Title != "third" || items[2].Title != "first" {
		t.Fatalf("expected newest first, got %+v", items)
	}
}

func TestGetSentimentDisabledWithoutBaseURL(t *testing.T) {
	s := testSupplier(t)

	sent, err := s.GetSentiment(context.Background(), "AAPL")
	if err != nil || sent != nil {
		t.Fatalf("expected nil sentiment, got %v %v", sent, err)
	}
}
