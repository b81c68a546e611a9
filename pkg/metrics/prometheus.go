package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	reconnectsTotal *prometheus.CounterVec
	activeSubs      *prometheus.GaugeVec
	signalsTotal    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_events_total",
				Help: "Total market events received, by provider and kind",
			},
			[]string{"provider", "kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_provider_reconnects_total",
				Help: "Reconnect attempts per provider",
			},
			[]string{"provider"},
		),
		activeSubs: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_active_subscriptions",
				Help: "Active subscriptions by channel",
			},
			[]string{"channel"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_signals_total",
				Help: "Generated signals by symbol and type",
			},
			[]string{"symbol", "type"},
		),
	}
}

// RecordEvent records a market event received from a provider.
func (r *Recorder) RecordEvent(provider, kind string) {
	r.eventsTotal.WithLabelValues(provider, kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordReconnect counts a reconnect attempt for a provider.
func (r *Recorder) RecordReconnect(provider string) {
	r.reconnectsTotal.WithLabelValues(provider).Inc()
}

// SetActiveSubscriptions sets the current subscription count for a channel.
func (r *Recorder) SetActiveSubscriptions(channel string, n int) {
	r.activeSubs.WithLabelValues(channel).Set(float64(n))
}

// RecordSignal counts a committed signal.
func (r *Recorder) RecordSignal(symbol, signalType string) {
	r.signalsTotal.WithLabelValues(symbol, signalType).Inc()
}
