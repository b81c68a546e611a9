package middleware

import (
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
)

// Sink is the downstream the pipeline forwards accepted trades to.
type Sink interface {
	Record(t *models.Trade)
}

// TradePipeline sits between the aggregator and trade persistence. It
// validates trades and throttles per-symbol write pressure so one noisy
// symbol cannot monopolize the storage batcher.
type TradePipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	maxRPS  int

	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
}

type PipelineOption func(*TradePipeline)

// WithMaxRPS sets the max persisted trades per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *TradePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// NewTradePipeline creates a pipeline in front of the given sink.
func NewTradePipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *TradePipeline {
	p := &TradePipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   20, // default throttle per symbol
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Record validates and throttles, then forwards to the sink. Invalid and
// throttled trades are dropped with a metric; the live quote cache has
// already been updated upstream so nothing user-visible is lost.
func (p *TradePipeline) Record(t *models.Trade) {
	if !validTrade(t) {
		p.metrics.RecordError("pipeline_validate")
		return
	}
	if !p.allow(t.Symbol, time.Now()) {
		p.metrics.RecordError("pipeline_throttle")
		return
	}
	p.sink.Record(t)
}

func validTrade(t *models.Trade) bool {
	if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
		return false
	}
	return t.Price > 0 && t.Volume >= 0
}

func (p *TradePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastSeen[symbol]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[symbol] = now
		return true
	}
	return false
}
