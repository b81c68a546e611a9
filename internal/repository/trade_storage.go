package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgch "MarketPulse/pkg/clickhouse"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// ClickHouseTradeStorage persists accepted trade events and serves daily
// candles aggregated from them. It is the last-resort history source when
// no provider can return real candles.
type ClickHouseTradeStorage struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseTradeStorage(ch *pkgch.Client, table string) *ClickHouseTradeStorage {
	return &ClickHouseTradeStorage{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseTradeStorage) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseTradeStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseTradeStorage) StoreBatch(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(trades); start += chunkSize {
		end := start + chunkSize
		if end > len(trades) {
			end = len(trades)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, t := range trades[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, t.Timestamp, t.Symbol, t.Price, t.Volume, t.Source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse trade insert error",
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store trades: %w", err)
		}
	}
	return nil
}

// QueryCandles aggregates stored trades into daily OHLCV buckets.
func (s *ClickHouseTradeStorage) QueryCandles(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	from, to = util.AlignFromTo(from, to.Add(24*time.Hour), "1d")
	const qtpl = `
        SELECT
            toStartOfDay(ts) AS bucket,
            argMin(price, ts) AS open,
            max(price) AS high,
            min(price) AS low,
            argMax(price, ts) AS close,
            sum(volume) AS vol
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse candle query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClickHouseTradeStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTradeStorage) Close() error {
	return nil // Connection owned by pkg client
}

var _ domrepo.TradeStorage = (*ClickHouseTradeStorage)(nil)
