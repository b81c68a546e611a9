package repository

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/logger"
)

const (
	quoteStreamResync  = time.Minute
	quotePublishBudget = 5 * time.Second
)

// QuotePublisher is the producer surface the quote stream publishes through.
type QuotePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaQuoteStream keeps the watch-list symbols stream-subscribed on the
// aggregator and publishes every quote and order-book update to a Kafka
// topic, keyed by symbol so one symbol's updates stay ordered. It is the
// in-process downstream of the aggregator fan-out.
type KafkaQuoteStream struct {
	producer  QuotePublisher
	topic     string
	agg       *usecase.QuoteAggregator
	watchlist domrepo.Watchlist
	log       *logger.Logger
	resync    time.Duration

	mu   sync.Mutex
	subs map[string][]usecase.Unsubscribe
}

func NewKafkaQuoteStream(producer QuotePublisher, topic string, agg *usecase.QuoteAggregator, watchlist domrepo.Watchlist, log *logger.Logger) *KafkaQuoteStream {
	return &KafkaQuoteStream{
		producer:  producer,
		topic:     topic,
		agg:       agg,
		watchlist: watchlist,
		log:       log,
		resync:    quoteStreamResync,
		subs:      make(map[string][]usecase.Unsubscribe),
	}
}

// Start subscribes the current watch-list and keeps the subscription set
// in sync until ctx is cancelled.
func (s *KafkaQuoteStream) Start(ctx context.Context) {
	s.syncWatchlist(ctx)
	go func() {
		ticker := time.NewTicker(s.resync)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncWatchlist(ctx)
			}
		}
	}()
}

// syncWatchlist reconciles the held subscriptions against the watch-list:
// new symbols get subscribed, dropped symbols get released.
func (s *KafkaQuoteStream) syncWatchlist(ctx context.Context) {
	symbols, err := s.watchlist.List(ctx)
	if err != nil {
		s.log.Warn("quote stream watchlist fetch failed", logger.Error(err))
		return
	}
	want := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		want[sym] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sym := range want {
		if _, ok := s.subs[sym]; ok {
			continue
		}
		sym := sym
		s.subs[sym] = []usecase.Unsubscribe{
			s.agg.SubscribePrices(sym, func(q *models.Quote) { s.publish(sym, "quote", q) }),
			s.agg.SubscribeBook(sym, func(b *models.BookQuote) { s.publish(sym, "orderbook", b) }),
		}
	}
	for sym, releases := range s.subs {
		if _, ok := want[sym]; ok {
			continue
		}
		for _, release := range releases {
			release()
		}
		delete(s.subs, sym)
	}
}

func (s *KafkaQuoteStream) publish(symbol, event string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), quotePublishBudget)
	defer cancel()
	if err := s.producer.Publish(ctx, s.topic, []byte(symbol), map[string]interface{}{
		"event":  event,
		"symbol": symbol,
		"data":   payload,
	}); err != nil {
		s.log.Warn("quote stream publish failed",
			logger.String("symbol", symbol), logger.Error(err))
	}
}

// Stop releases every held subscription handle.
func (s *KafkaQuoteStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sym, releases := range s.subs {
		for _, release := range releases {
			release()
		}
		delete(s.subs, sym)
	}
}
