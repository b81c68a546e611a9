package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// Event is the typed event stream between a provider adapter and the
// aggregator. Exactly one of Trade/Book is set.
type Event struct {
	Trade *models.Trade
	Book  *models.BookQuote
}

// MarketProvider is one external streaming source. Implementations own a
// single persistent connection and their reconnect/backoff lifecycle.
type MarketProvider interface {
	Name() string
	Priority() int // lower is queried first on fallback
	Connect(ctx context.Context) error
	// Restart recovers a provider halted by auth failure or abandoned
	// reconnects.
	Restart()
	Close() error
	IsConnected() bool

	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error
	Events() <-chan Event

	// Point-in-time fallback queries. A nil quote with nil error means the
	// provider has no data for the symbol.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetHistory(ctx context.Context, symbol string, rng models.HistoryRange) ([]models.Candle, error)
}

// NewsSupplier is the external news collaborator.
type NewsSupplier interface {
	GetNewsForSymbol(ctx context.Context, symbol string) ([]models.NewsItem, error)
	GetSentiment(ctx context.Context, symbol string) (*models.Sentiment, error)
}

// Watchlist drives the periodic signal refresh cycle's symbol set.
type Watchlist interface {
	List(ctx context.Context) ([]string, error)
}

// SignalStore persists generated signals for history queries.
type SignalStore interface {
	Append(ctx context.Context, signal *models.TradingSignal) error
	History(ctx context.Context, symbol string, limit int) ([]*models.TradingSignal, error)
}

// Broadcaster is the push boundary toward subscribed downstream clients.
type Broadcaster interface {
	OnNewSignal(ctx context.Context, symbol string, signal *models.TradingSignal) error
	OnSignalUpdate(ctx context.Context, symbol string, signal *models.TradingSignal) error
	Close() error
}

// TradeStorage persists accepted trade events and serves daily candles as
// the last-resort history source.
type TradeStorage interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, trades []*models.Trade) error
	QueryCandles(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts the Prometheus recorder.
type Metrics interface {
	RecordEvent(provider, kind string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordReconnect(provider string)
	SetActiveSubscriptions(channel string, n int)
	RecordSignal(symbol string, signalType string)
}
