package usecase

import (
	"context"
	"testing"

	"MarketPulse/internal/domain/models"
)

type captureIngestor struct {
	items []models.NewsItem
}

func (c *captureIngestor) Ingest(items ...models.NewsItem) {
	c.items = append(c.items, items...)
}

func TestNewsHandlerIngests(t *testing.T) {
	ing := &captureIngestor{}
	h := NewKafkaNewsHandler("news", ing, newFakeMetrics())

	msg := []byte(`{"symbols":["AAPL","MSFT"],"title":"Earnings beat","summary":"s","source":"wire","url":"http://x","t":1717340400}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(ing.items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(ing.items))
	}
	it := ing.items[0]
	if len(it.Symbols) != 2 || it.Title != "Earnings beat" {
		t.Fatalf("unexpected item %+v", it)
	}
	if it.PublishedAt.Unix() != 1717340400 {
		t.Fatalf("unexpected published time %v", it.PublishedAt)
	}
}

func TestNewsHandlerMillisecondTimestamps(t *testing.T) {
	ing := &captureIngestor{}
	h := NewKafkaNewsHandler("news", ing, newFakeMetrics())

	msg := []byte(`{"symbols":["AAPL"],"title":"t","t":1717340400000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := ing.items[0].PublishedAt; got.Unix() != 1717340400 {
		t.Fatalf("expected ms converted to s, got %v", got)
	}
}

func TestNewsHandlerSkipsIncomplete(t *testing.T) {
	ing := &captureIngestor{}
	m := newFakeMetrics()
	h := NewKafkaNewsHandler("news", ing, m)

	if err := h.Handle(context.Background(), []byte(`{"symbols":[],"title":"x"}`)); err != nil {
		t.Fatalf("incomplete message must not error: %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"symbols":["AAPL"],"title":""}`)); err != nil {
		t.Fatalf("incomplete message must not error: %v", err)
	}
	if len(ing.items) != 0 {
		t.Fatalf("expected nothing ingested, got %d", len(ing.items))
	}
	if m.errorCount("news_incomplete") != 2 {
		t.Fatalf("expected 2 incomplete drops")
	}
}

func TestNewsHandlerRejectsMalformed(t *testing.T) {
	h := NewKafkaNewsHandler("news", &captureIngestor{}, newFakeMetrics())
	if err := h.Handle(context.Background(), []byte(`{bad`)); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestNewsHandlerTopic(t *testing.T) {
	h := NewKafkaNewsHandler("market.news", &captureIngestor{}, newFakeMetrics())
	if h.Topic() != "market.news" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}
}
