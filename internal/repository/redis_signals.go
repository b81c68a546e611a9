package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
)

const (
	watchlistKey     = "watchlist:symbols"
	signalHistoryKey = "signals:history:%s"
	historyRetained  = 200
)

// RedisWatchlist reads the tracked symbol set maintained externally.
type RedisWatchlist struct {
	rc *cache.RedisCache
}

func NewRedisWatchlist(rc *cache.RedisCache) *RedisWatchlist {
	return &RedisWatchlist{rc: rc}
}

func (w *RedisWatchlist) List(ctx context.Context) ([]string, error) {
	symbols, err := w.rc.Client().SMembers(ctx, watchlistKey).Result()
	if err != nil {
		return nil, fmt.Errorf("watchlist read: %w", err)
	}
	return symbols, nil
}

var _ domrepo.Watchlist = (*RedisWatchlist)(nil)

// RedisSignalStore keeps a bounded per-symbol signal history list,
// newest first.
type RedisSignalStore struct {
	rc *cache.RedisCache
}

func NewRedisSignalStore(rc *cache.RedisCache) *RedisSignalStore {
	return &RedisSignalStore{rc: rc}
}

func (s *RedisSignalStore) Append(ctx context.Context, signal *models.TradingSignal) error {
	b, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	key := fmt.Sprintf(signalHistoryKey, signal.Symbol)
	pipe := s.rc.Client().TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, historyRetained-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (s *RedisSignalStore) History(ctx context.Context, symbol string, limit int) ([]*models.TradingSignal, error) {
	if limit <= 0 || limit > historyRetained {
		limit = historyRetained
	}
	key := fmt.Sprintf(signalHistoryKey, symbol)
	raw, err := s.rc.Client().LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("signal history read: %w", err)
	}

	out := make([]*models.TradingSignal, 0, len(raw))
	for _, r := range raw {
		var sig models.TradingSignal
		if err := json.Unmarshal([]byte(r), &sig); err != nil {
			continue // skip unreadable entries
		}
		out = append(out, &sig)
	}
	return out, nil
}

var _ domrepo.SignalStore = (*RedisSignalStore)(nil)
