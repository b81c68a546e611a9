package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/services/analysis"
	"MarketPulse/pkg/logger"
)

const (
	defaultBuyThreshold  = 15.0
	defaultSellThreshold = -15.0
	defaultStability     = 10 * time.Minute
	defaultSignalTTL     = 24 * time.Hour
	defaultSweepEvery    = time.Minute
	defaultRefreshEvery  = 5 * time.Minute

	minNewsForSentiment = 3
	maxReasons          = 8
)

// SignalEngineConfig tunes decision thresholds and cycle cadence. Zero
// values fall back to defaults.
type SignalEngineConfig struct {
	BuyThreshold    float64
	SellThreshold   float64
	StabilityWindow time.Duration
	SignalTTL       time.Duration
	SweepInterval   time.Duration
	RefreshInterval time.Duration
}

func (c *SignalEngineConfig) normalize() {
	if c.BuyThreshold == 0 {
		c.BuyThreshold = defaultBuyThreshold
	}
	if c.SellThreshold == 0 {
		c.SellThreshold = defaultSellThreshold
	}
	if c.StabilityWindow == 0 {
		c.StabilityWindow = defaultStability
	}
	if c.SignalTTL == 0 {
		c.SignalTTL = defaultSignalTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaultSweepEvery
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = defaultRefreshEvery
	}
}

// SignalEngine pulls quote, history, and news for a symbol, runs the three
// analyzers, and commits a scored decision through the hysteresis table.
// Generation for different symbols runs concurrently; per symbol it is
// serialized so the state read-then-write stays atomic.
type SignalEngine struct {
	cfg       SignalEngineConfig
	agg       *QuoteAggregator
	news      drepo.NewsSupplier
	watchlist drepo.Watchlist
	store     drepo.SignalStore
	broadcast drepo.Broadcaster
	metrics   drepo.Metrics
	log       *logger.Logger

	mu       sync.Mutex
	active   map[string]*models.TradingSignal
	states   map[string]*models.SignalState
	symLocks map[string]*sync.Mutex

	now func() time.Time
}

func NewSignalEngine(
	cfg SignalEngineConfig,
	agg *QuoteAggregator,
	news drepo.NewsSupplier,
	watchlist drepo.Watchlist,
	store drepo.SignalStore,
	broadcast drepo.Broadcaster,
	metrics drepo.Metrics,
	log *logger.Logger,
) *SignalEngine {
	cfg.normalize()
	return &SignalEngine{
		cfg:       cfg,
		agg:       agg,
		news:      news,
		watchlist: watchlist,
		store:     store,
		broadcast: broadcast,
		metrics:   metrics,
		log:       log,
		active:    make(map[string]*models.TradingSignal),
		states:    make(map[string]*models.SignalState),
		symLocks:  make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// Start runs the expiry sweep and the watchlist refresh cycle until ctx
// is cancelled.
func (e *SignalEngine) Start(ctx context.Context) {
	go e.sweepLoop(ctx)
	go e.refreshLoop(ctx)
}

func (e *SignalEngine) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepExpired()
		}
	}
}

func (e *SignalEngine) sweepExpired() {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for symbol, sig := range e.active {
		if sig.Expired(now) {
			delete(e.active, symbol)
			e.log.Debug("signal expired",
				logger.String("symbol", symbol),
				logger.String("signal_id", sig.ID))
		}
	}
}

func (e *SignalEngine) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshWatchlist(ctx)
		}
	}
}

func (e *SignalEngine) refreshWatchlist(ctx context.Context) {
	symbols, err := e.watchlist.List(ctx)
	if err != nil {
		e.log.Warn("watchlist refresh failed", logger.Error(err))
		return
	}
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.GenerateSignal(ctx, symbol); err != nil {
			e.log.Warn("signal refresh failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
}

func (e *SignalEngine) symbolLock(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symLocks[symbol] = l
	}
	return l
}

// GenerateSignal runs one full generation cycle for a symbol. It fails when
// no quote can be obtained; every other input degrades to the analyzers'
// neutral defaults.
func (e *SignalEngine) GenerateSignal(ctx context.Context, symbol string) (*models.TradingSignal, error) {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	started := e.now()

	quote, err := e.agg.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("generate signal for %s: %w", symbol, err)
	}

	candles, _, err := e.candleSeries(ctx, symbol, quote.Price)
	if err != nil {
		return nil, fmt.Errorf("generate signal for %s: %w", symbol, err)
	}

	items, err := e.news.GetNewsForSymbol(ctx, symbol)
	if err != nil {
		e.log.Debug("news unavailable, scoring without sentiment",
			logger.String("symbol", symbol), logger.Error(err))
		items = nil
	}

	now := e.now()
	ta := analysis.Technical(symbol, quote.Price, candles)
	sa := analysis.Sentiment(symbol, items, now)
	e.fillExternalSentiment(ctx, symbol, sa)
	pa := analysis.PriceAction(symbol, candles)

	buy, sell, reasons := scoreSignal(quote, ta, sa, pa)
	net := buy - sell

	prev := e.previousState(symbol)
	sigType := decide(prev, net, e.cfg.BuyThreshold, e.cfg.SellThreshold, e.cfg.StabilityWindow, now)

	signal := e.buildSignal(symbol, sigType, net, quote.Price, pa.Volatility, reasons, now)

	hadActive := e.commit(symbol, signal, net, now)

	if err := e.store.Append(ctx, signal); err != nil {
		e.log.Warn("signal store append failed",
			logger.String("symbol", symbol), logger.Error(err))
	}
	e.publish(ctx, symbol, signal, hadActive)

	e.metrics.RecordSignal(symbol, string(sigType))
	e.metrics.RecordLatency("generate_signal", e.now().Sub(started).Seconds())
	return signal, nil
}

// candleSeries returns real history when any provider or storage has it,
// otherwise a reproducible synthetic series anchored at the live price.
// The second return reports whether the series is synthetic.
func (e *SignalEngine) candleSeries(ctx context.Context, symbol string, price float64) ([]models.Candle, bool, error) {
	candles, err := e.agg.GetHistory(ctx, symbol, models.RangeQuarter)
	if err != nil {
		return nil, false, err
	}
	if len(candles) > 0 {
		return candles, false, nil
	}
	return syntheticCandles(symbol, price, e.now()), true, nil
}

// fillExternalSentiment substitutes the supplier's precomputed sentiment
// when the local feed has too few articles to clear the scoring gate. A
// supplier error or missing sentiment leaves the local analysis untouched.
func (e *SignalEngine) fillExternalSentiment(ctx context.Context, symbol string, sa *models.SentimentAnalysis) {
	if sa.NewsCount >= minNewsForSentiment {
		return
	}
	s, err := e.news.GetSentiment(ctx, symbol)
	if err != nil {
		e.log.Debug("supplier sentiment unavailable",
			logger.String("symbol", symbol), logger.Error(err))
		return
	}
	if s == nil {
		return
	}
	sa.Score = s.Score
	sa.RecentScore = s.Score
	sa.Label = s.Label
	sa.Confidence = s.Confidence
	sa.External = true
}

func (e *SignalEngine) previousState(symbol string) *models.SignalState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[symbol]
}

// commit records the new state and active signal; returns whether an
// unexpired signal was already active for the symbol.
func (e *SignalEngine) commit(symbol string, signal *models.TradingSignal, net float64, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, had := e.active[symbol]
	hadActive := had && !prev.Expired(now)

	e.active[symbol] = signal
	e.states[symbol] = &models.SignalState{
		Type:      signal.Type,
		NetScore:  net,
		Timestamp: now,
	}
	return hadActive
}

func (e *SignalEngine) publish(ctx context.Context, symbol string, signal *models.TradingSignal, update bool) {
	var err error
	if update {
		err = e.broadcast.OnSignalUpdate(ctx, symbol, signal)
	} else {
		err = e.broadcast.OnNewSignal(ctx, symbol, signal)
	}
	if err != nil {
		e.log.Warn("signal broadcast failed",
			logger.String("symbol", symbol), logger.Error(err))
	}
}

func (e *SignalEngine) buildSignal(symbol string, sigType models.SignalType, net, price, volatility float64, reasons []models.SignalReasoning, now time.Time) *models.TradingSignal {
	strength := int(math.Min(math.Round(math.Abs(net)*1.2), 100))

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Weight > reasons[j].Weight
	})
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	signal := &models.TradingSignal{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Type:      sigType,
		Strength:  strength,
		Price:     price,
		Reasoning: reasons,
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.SignalTTL),
	}

	if sigType != models.SignalHold {
		target, stop := priceTargets(sigType, price, strength, volatility)
		signal.TargetPrice = target
		signal.StopLoss = stop
	}
	return signal
}

// priceTargets offsets target/stop from the current price by a strength-
// and volatility-scaled percentage.
func priceTargets(sigType models.SignalType, price float64, strength int, volatility float64) (target, stop float64) {
	mult := 1.0
	switch {
	case volatility > 0.40:
		mult = 1.5
	case volatility > 0 && volatility < 0.15:
		mult = 0.7
	}

	move := (0.02 + float64(strength)/100*0.06) * mult

	if sigType == models.SignalBuy {
		return round2(price * (1 + move)), round2(price * (1 - move/2))
	}
	return round2(price * (1 - move)), round2(price * (1 + move/2))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// GetActiveSignals returns the unexpired committed signal per symbol.
func (e *SignalEngine) GetActiveSignals() []*models.TradingSignal {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.TradingSignal, 0, len(e.active))
	for _, sig := range e.active {
		if !sig.Expired(now) {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// GetSignalHistory returns persisted past signals for a symbol,
// newest first.
func (e *SignalEngine) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.TradingSignal, error) {
	return e.store.History(ctx, symbol, limit)
}

// GetAnalysis assembles the full on-demand view: quote, all three
// analyses, and the active signal when one exists.
func (e *SignalEngine) GetAnalysis(ctx context.Context, symbol string) (*models.ComprehensiveAnalysis, error) {
	quote, err := e.agg.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("analysis for %s: %w", symbol, err)
	}

	candles, synthetic, err := e.candleSeries(ctx, symbol, quote.Price)
	if err != nil {
		return nil, fmt.Errorf("analysis for %s: %w", symbol, err)
	}

	items, err := e.news.GetNewsForSymbol(ctx, symbol)
	if err != nil {
		items = nil
	}

	now := e.now()
	sa := analysis.Sentiment(symbol, items, now)
	e.fillExternalSentiment(ctx, symbol, sa)

	e.mu.Lock()
	active := e.active[symbol]
	if active != nil && active.Expired(now) {
		active = nil
	}
	e.mu.Unlock()

	return &models.ComprehensiveAnalysis{
		Symbol:      symbol,
		Quote:       quote,
		Technical:   analysis.Technical(symbol, quote.Price, candles),
		Sentiment:   sa,
		PriceAction: analysis.PriceAction(symbol, candles),
		Signal:      active,
		Synthetic:   synthetic,
		GeneratedAt: now,
	}, nil
}
