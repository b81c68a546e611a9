package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/marketcal"
	"MarketPulse/pkg/logger"
)

// ErrQuoteUnavailable means no provider could produce a quote. Analysis
// fails fast on it rather than running on absent data.
var ErrQuoteUnavailable = errors.New("quote unavailable from all providers")

// Unsubscribe releases one subscription handle. Calling it twice is a no-op.
type Unsubscribe func()

// TradeSink receives every accepted trade after the cache update. The
// persistence pipeline implements it.
type TradeSink interface {
	Record(t *models.Trade)
}

// QuoteAggregator merges events from all provider adapters into a single
// per-symbol quote cache and owns the provider subscription lifecycle:
// the first subscriber for a symbol subscribes it on every adapter, the
// last unsubscribe releases it.
type QuoteAggregator struct {
	providers []drepo.MarketProvider // sorted by ascending priority
	storage   drepo.TradeStorage     // last-resort history source, may be nil
	recorder  TradeSink              // may be nil
	metrics   drepo.Metrics
	log       *logger.Logger
	staleness time.Duration

	mu        sync.Mutex
	quotes    map[string]*models.Quote
	priceSubs map[string]map[uint64]func(*models.Quote)
	bookSubs  map[string]map[uint64]func(*models.BookQuote)
	nextID    uint64

	startOnce sync.Once
}

// NewQuoteAggregator creates the aggregator over the given providers.
func NewQuoteAggregator(
	providers []drepo.MarketProvider,
	storage drepo.TradeStorage,
	recorder TradeSink,
	metrics drepo.Metrics,
	log *logger.Logger,
	staleness time.Duration,
) *QuoteAggregator {
	sorted := append([]drepo.MarketProvider(nil), providers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &QuoteAggregator{
		providers: sorted,
		storage:   storage,
		recorder:  recorder,
		metrics:   metrics,
		log:       log,
		staleness: staleness,
		quotes:    make(map[string]*models.Quote),
		priceSubs: make(map[string]map[uint64]func(*models.Quote)),
		bookSubs:  make(map[string]map[uint64]func(*models.BookQuote)),
	}
}

// Start launches one consume loop per provider. Idempotent.
func (a *QuoteAggregator) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		for _, p := range a.providers {
			go a.consume(ctx, p)
		}
	})
}

func (a *QuoteAggregator) consume(ctx context.Context, p drepo.MarketProvider) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.Events():
			if !ok {
				return
			}
			switch {
			case ev.Trade != nil:
				a.applyTrade(ev.Trade)
			case ev.Book != nil:
				a.fanOutBook(ev.Book)
			}
		}
	}
}

// applyTrade folds a trade event into the cached quote. Updates are
// monotonic per symbol: an event older than the cached timestamp (a slower
// source catching up) is dropped.
func (a *QuoteAggregator) applyTrade(t *models.Trade) {
	a.mu.Lock()
	q, ok := a.quotes[t.Symbol]
	if ok && q.Timestamp.After(t.Timestamp) {
		a.mu.Unlock()
		a.metrics.RecordError("stale_event")
		return
	}
	if !ok {
		q = &models.Quote{Symbol: t.Symbol}
		a.quotes[t.Symbol] = q
	}
	q.Price = t.Price
	q.Volume += t.Volume
	q.Timestamp = t.Timestamp
	q.Source = t.Source
	if q.PreviousClose > 0 {
		q.Change = t.Price - q.PreviousClose
		q.ChangePercent = q.Change / q.PreviousClose * 100
	}
	snapshot := *q
	subs := a.priceCallbacks(t.Symbol)
	a.mu.Unlock()

	a.metrics.RecordLastPrice(t.Symbol, t.Price)
	for _, cb := range subs {
		cb(&snapshot)
	}
	if a.recorder != nil {
		a.recorder.Record(t)
	}
}

// fanOutBook forwards a bid/ask event to order-book subscribers without
// touching the trade-side cache.
func (a *QuoteAggregator) fanOutBook(b *models.BookQuote) {
	a.mu.Lock()
	var subs []func(*models.BookQuote)
	for _, cb := range a.bookSubs[b.Symbol] {
		subs = append(subs, cb)
	}
	a.mu.Unlock()

	for _, cb := range subs {
		cb(b)
	}
}

func (a *QuoteAggregator) priceCallbacks(symbol string) []func(*models.Quote) {
	var subs []func(*models.Quote)
	for _, cb := range a.priceSubs[symbol] {
		subs = append(subs, cb)
	}
	return subs
}

// SubscribePrices registers a callback for trade-side quote updates.
// The first subscriber for a symbol triggers provider-level subscription.
func (a *QuoteAggregator) SubscribePrices(symbol string, cb func(*models.Quote)) Unsubscribe {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	if a.priceSubs[symbol] == nil {
		a.priceSubs[symbol] = make(map[uint64]func(*models.Quote))
	}
	a.priceSubs[symbol][id] = cb
	first := a.refCount(symbol) == 1
	a.mu.Unlock()

	if first {
		a.providerSubscribe(symbol)
	}
	a.updateSubGauges()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.priceSubs[symbol], id)
			last := a.refCount(symbol) == 0
			a.mu.Unlock()
			if last {
				a.providerUnsubscribe(symbol)
			}
			a.updateSubGauges()
		})
	}
}

// SubscribeBook registers a callback for order-book (bid/ask) updates.
func (a *QuoteAggregator) SubscribeBook(symbol string, cb func(*models.BookQuote)) Unsubscribe {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	if a.bookSubs[symbol] == nil {
		a.bookSubs[symbol] = make(map[uint64]func(*models.BookQuote))
	}
	a.bookSubs[symbol][id] = cb
	first := a.refCount(symbol) == 1
	a.mu.Unlock()

	if first {
		a.providerSubscribe(symbol)
	}
	a.updateSubGauges()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.bookSubs[symbol], id)
			last := a.refCount(symbol) == 0
			a.mu.Unlock()
			if last {
				a.providerUnsubscribe(symbol)
			}
			a.updateSubGauges()
		})
	}
}

// refCount is the combined subscriber count for a symbol. Caller holds a.mu.
func (a *QuoteAggregator) refCount(symbol string) int {
	return len(a.priceSubs[symbol]) + len(a.bookSubs[symbol])
}

func (a *QuoteAggregator) providerSubscribe(symbol string) {
	for _, p := range a.providers {
		if err := p.Subscribe(context.Background(), []string{symbol}); err != nil {
			a.log.Warn("provider subscribe failed",
				logger.String("provider", p.Name()),
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}
}

func (a *QuoteAggregator) providerUnsubscribe(symbol string) {
	for _, p := range a.providers {
		if err := p.Unsubscribe(context.Background(), []string{symbol}); err != nil {
			a.log.Warn("provider unsubscribe failed",
				logger.String("provider", p.Name()),
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}
}

func (a *QuoteAggregator) updateSubGauges() {
	a.mu.Lock()
	price, book := 0, 0
	for _, m := range a.priceSubs {
		price += len(m)
	}
	for _, m := range a.bookSubs {
		book += len(m)
	}
	a.mu.Unlock()
	a.metrics.SetActiveSubscriptions("price", price)
	a.metrics.SetActiveSubscriptions("book", book)
}

// GetQuote serves the cached quote when fresh, otherwise queries providers
// in priority order and caches the first non-nil result.
func (a *QuoteAggregator) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	a.mu.Lock()
	if q, ok := a.quotes[symbol]; ok && time.Since(q.Timestamp) < a.staleness {
		cp := *q
		a.mu.Unlock()
		return &cp, nil
	}
	a.mu.Unlock()

	start := time.Now()
	for _, p := range a.providers {
		q, err := p.GetQuote(ctx, symbol)
		if err != nil {
			a.metrics.RecordError("provider_quote")
			a.log.Warn("provider quote failed, trying next",
				logger.String("provider", p.Name()),
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}
		if q == nil {
			continue
		}
		a.cacheQuote(q)
		a.metrics.RecordLatency("get_quote", time.Since(start).Seconds())
		return q, nil
	}
	return nil, ErrQuoteUnavailable
}

// GetQuotes resolves multiple symbols; symbols with no available quote are
// omitted rather than failing the batch.
func (a *QuoteAggregator) GetQuotes(ctx context.Context, symbols []string) ([]*models.Quote, error) {
	out := make([]*models.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, err := a.GetQuote(ctx, s)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// cacheQuote stores a provider-fetched quote, respecting per-symbol
// timestamp monotonicity against streamed updates.
func (a *QuoteAggregator) cacheQuote(q *models.Quote) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.quotes[q.Symbol]; ok && cur.Timestamp.After(q.Timestamp) {
		return
	}
	cp := *q
	a.quotes[q.Symbol] = &cp
}

// GetHistory queries providers in priority order, then the trade storage.
// An empty series (never fabricated data) is the defined no-data result.
func (a *QuoteAggregator) GetHistory(ctx context.Context, symbol string, rng models.HistoryRange) ([]models.Candle, error) {
	for _, p := range a.providers {
		cs, err := p.GetHistory(ctx, symbol, rng)
		if err != nil {
			a.metrics.RecordError("provider_history")
			a.log.Warn("provider history failed, trying next",
				logger.String("provider", p.Name()),
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}
		if len(cs) > 0 {
			return cs, nil
		}
	}

	if a.storage != nil {
		win := marketcal.RangeWindow(rng, time.Now())
		cs, err := a.storage.QueryCandles(ctx, symbol, win.From, win.To)
		if err == nil && len(cs) > 0 {
			return cs, nil
		}
		if err != nil {
			a.metrics.RecordError("storage_history")
		}
	}

	return []models.Candle{}, nil
}
