// Package newsfeed implements the news supplier collaborator. Articles come
// from two paths: on-demand REST pulls (cached) and the streaming ingestion
// feed consumed from Kafka. Both paths are deduplicated by normalized title.
package newsfeed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
	xhttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

const (
	maxItemsPerSymbol = 200
	maxReturnedItems  = 50
	retention         = 7 * 24 * time.Hour
)

// Supplier serves per-symbol news and precomputed sentiment.
type Supplier struct {
	rest     *xhttp.Client
	baseURL  string
	apiKey   string
	cache    cache.Service
	cacheTTL time.Duration
	log      *logger.Logger

	mu       sync.RWMutex
	ingested map[string][]models.NewsItem
}

// New creates a Supplier. cacheSvc may be layered (memory + Redis) or
// memory-only; it holds REST responses for cacheTTL.
func New(baseURL, apiKey string, cacheSvc cache.Service, cacheTTL time.Duration, log *logger.Logger) *Supplier {
	return &Supplier{
		rest:     xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		baseURL:  baseURL,
		apiKey:   apiKey,
		cache:    cacheSvc,
		cacheTTL: cacheTTL,
		log:      log,
		ingested: make(map[string][]models.NewsItem),
	}
}

type wireNewsItem struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Related  string `json:"related"`
	Datetime int64  `json:"datetime"` // unix seconds
}

// GetNewsForSymbol merges the ingestion feed with a cached REST pull,
// deduplicates, and returns the newest items first.
func (s *Supplier) GetNewsForSymbol(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	remote, err := s.fetchRemote(ctx, symbol)
	if err != nil {
		// degrade to the ingestion feed
		s.log.Warn("news fetch failed, serving ingested only",
			logger.String("symbol", symbol), logger.Error(err))
	}

	s.mu.RLock()
	local := append([]models.NewsItem(nil), s.ingested[symbol]...)
	s.mu.RUnlock()

	merged := models.DedupNews(append(local, remote...))
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > maxReturnedItems {
		merged = merged[:maxReturnedItems]
	}
	return merged, nil
}

func (s *Supplier) fetchRemote(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	if s.baseURL == "" {
		return nil, nil
	}

	cacheKey := cache.GenerateKey("news", symbol)
	var cached []models.NewsItem
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var wire []wireNewsItem
	err := s.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/company-news",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {s.apiKey},
		},
	}, &wire)
	if err != nil {
		return nil, fmt.Errorf("company news: %w", err)
	}

	items := make([]models.NewsItem, 0, len(wire))
	for _, w := range wire {
		if w.Headline == "" {
			continue
		}
		items = append(items, models.NewsItem{
			ID:          fmt.Sprintf("%d", w.ID),
			Title:       w.Headline,
			Summary:     w.Summary,
			Source:      w.Source,
			URL:         w.URL,
			Symbols:     []string{symbol},
			PublishedAt: time.Unix(w.Datetime, 0),
		})
	}
	items = models.DedupNews(items)

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, items, s.cacheTTL)
	}
	return items, nil
}

type wireSentiment struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// GetSentiment returns the supplier's precomputed sentiment, or nil when
// the supplier has none for the symbol.
func (s *Supplier) GetSentiment(ctx context.Context, symbol string) (*models.Sentiment, error) {
	if s.baseURL == "" {
		return nil, nil
	}
	var ws *wireSentiment
	err := s.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/news-sentiment",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {s.apiKey},
		},
	}, &ws)
	if err != nil {
		return nil, fmt.Errorf("news sentiment: %w", err)
	}
	if ws == nil || ws.Label == "" {
		return nil, nil
	}
	return &models.Sentiment{Score: ws.Score, Label: ws.Label, Confidence: ws.Confidence}, nil
}

// Ingest adds items from the streaming feed, fanning each out to all of its
// symbols, deduplicating, and trimming retention.
func (s *Supplier) Ingest(items ...models.NewsItem) {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		for _, sym := range it.Symbols {
			merged := models.DedupNews(append(s.ingested[sym], it))

			kept := merged[:0]
			for _, m := range merged {
				if m.PublishedAt.After(cutoff) {
					kept = append(kept, m)
				}
			}
			if len(kept) > maxItemsPerSymbol {
				kept = kept[len(kept)-maxItemsPerSymbol:]
			}
			s.ingested[sym] = kept
		}
	}
}

var _ drepo.NewsSupplier = (*Supplier)(nil)
