package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/logger"
)

type streamMetrics struct{}

func (streamMetrics) RecordEvent(provider, kind string)            {}
func (streamMetrics) RecordError(kind string)                      {}
func (streamMetrics) RecordLastPrice(symbol string, price float64) {}
func (streamMetrics) RecordLatency(op string, seconds float64)     {}
func (streamMetrics) RecordReconnect(provider string)              {}
func (streamMetrics) SetActiveSubscriptions(channel string, n int) {}
func (streamMetrics) RecordSignal(symbol, signalType string)       {}

type capturedPublish struct {
	topic  string
	key    string
	event  string
	symbol string
}

type fakePublisher struct {
	mu        sync.Mutex
	published []capturedPublish
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	env, _ := value.(map[string]interface{})
	event, _ := env["event"].(string)
	symbol, _ := env["symbol"].(string)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, capturedPublish{
		topic:  topic,
		key:    string(key),
		event:  event,
		symbol: symbol,
	})
	return nil
}

func (p *fakePublisher) snapshot() []capturedPublish {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedPublish(nil), p.published...)
}

type fakeStreamWatchlist struct {
	mu      sync.Mutex
	symbols []string
}

func (w *fakeStreamWatchlist) List(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.symbols...), nil
}

func (w *fakeStreamWatchlist) set(symbols []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.symbols = symbols
}

type fakeStreamProvider struct {
	events chan domrepo.Event

	mu         sync.Mutex
	subscribed []string
	removed    []string
}

func newFakeStreamProvider() *fakeStreamProvider {
	return &fakeStreamProvider{events: make(chan domrepo.Event, 16)}
}

func (p *fakeStreamProvider) Name() string                      { return "fake" }
func (p *fakeStreamProvider) Priority() int                     { return 1 }
func (p *fakeStreamProvider) Connect(ctx context.Context) error { return nil }
func (p *fakeStreamProvider) Restart()                          {}
func (p *fakeStreamProvider) Close() error                      { return nil }
func (p *fakeStreamProvider) IsConnected() bool                 { return true }
func (p *fakeStreamProvider) Events() <-chan domrepo.Event      { return p.events }

func (p *fakeStreamProvider) Subscribe(ctx context.Context, symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed = append(p.subscribed, symbols...)
	return nil
}

func (p *fakeStreamProvider) Unsubscribe(ctx context.Context, symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, symbols...)
	return nil
}

func (p *fakeStreamProvider) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return nil, nil
}

func (p *fakeStreamProvider) GetHistory(ctx context.Context, symbol string, rng models.HistoryRange) ([]models.Candle, error) {
	return nil, nil
}

func (p *fakeStreamProvider) removedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.removed)
}

func streamTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestQuoteStream(t *testing.T, symbols []string) (*KafkaQuoteStream, *fakePublisher, *fakeStreamProvider, *fakeStreamWatchlist, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	p := newFakeStreamProvider()
	agg := usecase.NewQuoteAggregator([]domrepo.MarketProvider{p}, nil, nil, streamMetrics{}, streamTestLogger(t), time.Second)
	agg.Start(ctx)

	pub := &fakePublisher{}
	wl := &fakeStreamWatchlist{symbols: symbols}
	s := NewKafkaQuoteStream(pub, "quotes", agg, wl, streamTestLogger(t))
	s.syncWatchlist(ctx)
	return s, pub, p, wl, cancel
}

func waitForPublish(t *testing.T, pub *fakePublisher, event string) capturedPublish {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range pub.snapshot() {
			if c.event == event {
				return c
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q publish observed, got %v", event, pub.snapshot())
	return capturedPublish{}
}

func TestQuoteStreamPublishesTrades(t *testing.T) {
	s, pub, p, _, cancel := newTestQuoteStream(t, []string{"AAPL"})
	defer cancel()
	defer s.Stop()

	p.mu.Lock()
	subscribed := len(p.subscribed)
	p.mu.Unlock()
	if subscribed == 0 {
		t.Fatalf("expected watch-list symbol subscribed upstream")
	}

	p.events <- domrepo.Event{Trade: &models.Trade{
		Symbol: "AAPL", Price: 101.5, Volume: 10, Timestamp: time.Now(), Source: "fake",
	}}

	c := waitForPublish(t, pub, "quote")
	if c.topic != "quotes" || c.key != "AAPL" || c.symbol != "AAPL" {
		t.Fatalf("unexpected publish %+v", c)
	}
}

func TestQuoteStreamPublishesOrderBook(t *testing.T) {
	s, pub, p, _, cancel := newTestQuoteStream(t, []string{"AAPL"})
	defer cancel()
	defer s.Stop()

	p.events <- domrepo.Event{Book: &models.BookQuote{
		Symbol: "AAPL", BidPrice: 101.4, AskPrice: 101.6, Timestamp: time.Now(), Source: "fake",
	}}

	c := waitForPublish(t, pub, "orderbook")
	if c.key != "AAPL" {
		t.Fatalf("unexpected publish %+v", c)
	}
}

func TestQuoteStreamReleasesDroppedSymbols(t *testing.T) {
	s, _, p, wl, cancel := newTestQuoteStream(t, []string{"AAPL", "MSFT"})
	defer cancel()

	wl.set([]string{"AAPL"})
	s.syncWatchlist(context.Background())

	if got := p.removedCount(); got == 0 {
		t.Fatalf("expected dropped symbol released upstream")
	}
	s.mu.Lock()
	_, kept := s.subs["AAPL"]
	_, dropped := s.subs["MSFT"]
	s.mu.Unlock()
	if !kept || dropped {
		t.Fatalf("expected AAPL kept and MSFT dropped, kept=%v dropped=%v", kept, dropped)
	}

	s.Stop()
	s.mu.Lock()
	remaining := len(s.subs)
	s.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected Stop to release all subscriptions, %d left", remaining)
	}
}
