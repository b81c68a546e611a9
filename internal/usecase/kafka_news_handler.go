package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// NewsIngestor receives externally sourced news items for later sentiment
// scoring. Implemented by the news supplier.
type NewsIngestor interface {
	Ingest(items ...models.NewsItem)
}

// KafkaNewsHandler consumes news items published by upstream collectors
// and feeds them into the in-process news store.
type KafkaNewsHandler struct {
	topic    string
	ingestor NewsIngestor
	metrics  drepo.Metrics
}

func NewKafkaNewsHandler(topic string, ingestor NewsIngestor, metrics drepo.Metrics) *KafkaNewsHandler {
	return &KafkaNewsHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaNewsHandler) Topic() string { return h.topic }

// incoming message schema: {symbols, title, summary, source, url, t}
func (h *KafkaNewsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbols []string `json:"symbols"`
		Title   string   `json:"title"`
		Summary string   `json:"summary"`
		Source  string   `json:"source"`
		URL     string   `json:"url"`
		T       int64    `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("news_unmarshal")
		return err
	}
	if m.Title == "" || len(m.Symbols) == 0 {
		h.metrics.RecordError("news_incomplete")
		return nil
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}

	published := time.Unix(m.T, 0)
	h.metrics.RecordLatency("news_ingest_lag", time.Since(published).Seconds())

	h.ingestor.Ingest(models.NewsItem{
		Symbols:     m.Symbols,
		Title:       m.Title,
		Summary:     m.Summary,
		Source:      m.Source,
		URL:         m.URL,
		PublishedAt: published,
	})
	h.metrics.RecordEvent("kafka", "news")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaNewsHandler)(nil)
