package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// KafkaBroadcaster pushes committed signals to downstream subscribers via
// a Kafka topic, keyed by symbol so one symbol's updates stay ordered.
type KafkaBroadcaster struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaBroadcaster(producer *pkgkafka.Producer, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{producer: producer, topic: topic}
}

func (b *KafkaBroadcaster) OnNewSignal(ctx context.Context, symbol string, signal *models.TradingSignal) error {
	return b.publish(ctx, "signal.new", symbol, signal)
}

func (b *KafkaBroadcaster) OnSignalUpdate(ctx context.Context, symbol string, signal *models.TradingSignal) error {
	return b.publish(ctx, "signal.update", symbol, signal)
}

func (b *KafkaBroadcaster) publish(ctx context.Context, event, symbol string, signal *models.TradingSignal) error {
	return b.producer.Publish(ctx, b.topic, []byte(symbol), map[string]interface{}{
		"event":  event,
		"symbol": symbol,
		"signal": signal,
	})
}

func (b *KafkaBroadcaster) Close() error {
	if b.producer != nil {
		return b.producer.Close()
	}
	return nil
}

var _ domrepo.Broadcaster = (*KafkaBroadcaster)(nil)
