package usecase

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// TradeRecorder batches accepted trade events into the trade storage so
// daily candles can be rebuilt when every live provider is out of data.
type TradeRecorder struct {
	storage drepo.TradeStorage
	metrics drepo.Metrics
	log     *logger.Logger
	batchSz int
	flushTO time.Duration

	mu    sync.Mutex
	batch []*models.Trade

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTradeRecorder creates a recorder flushing every batchSize trades or
// flushTimeout, whichever comes first.
func NewTradeRecorder(storage drepo.TradeStorage, metrics drepo.Metrics, log *logger.Logger, batchSize int, flushTimeout time.Duration) *TradeRecorder {
	if batchSize <= 0 {
		batchSize = 500
	}
	if flushTimeout <= 0 {
		flushTimeout = 2 * time.Second
	}
	return &TradeRecorder{
		storage: storage,
		metrics: metrics,
		log:     log,
		batchSz: batchSize,
		flushTO: flushTimeout,
		batch:   make([]*models.Trade, 0, batchSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the periodic flush loop.
func (r *TradeRecorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.flushTO)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.flush(context.Background())
				return
			case <-r.stopCh:
				r.flush(context.Background())
				return
			case <-ticker.C:
				r.flush(ctx)
			}
		}
	}()
}

// Record queues one trade; a full batch flushes inline.
func (r *TradeRecorder) Record(t *models.Trade) {
	r.mu.Lock()
	r.batch = append(r.batch, t)
	full := len(r.batch) >= r.batchSz
	r.mu.Unlock()

	if full {
		r.flush(context.Background())
	}
}

func (r *TradeRecorder) flush(ctx context.Context) {
	r.mu.Lock()
	if len(r.batch) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.batch
	r.batch = make([]*models.Trade, 0, r.batchSz)
	r.mu.Unlock()

	start := time.Now()
	if err := r.storage.StoreBatch(ctx, batch); err != nil {
		r.metrics.RecordError("store_batch")
		r.log.Warn("trade batch store failed", logger.Int("trades", len(batch)), logger.Error(err))
		return
	}
	r.metrics.RecordLatency("store_batch", time.Since(start).Seconds())
}

// Stop flushes pending trades and stops the loop.
func (r *TradeRecorder) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
