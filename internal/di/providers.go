package di

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	mid "MarketPulse/internal/middleware"
	internalrepo "MarketPulse/internal/repository"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/service/newsfeed"
	"MarketPulse/internal/service/provider"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Log.Pretty {
		format = "console"
	}
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// trade table. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.ClickHouse.Table
	if table == "" {
		table = "trades"
	}
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (ts DateTime64(3), symbol String, price Float64, volume Float64, source String) ENGINE=MergeTree ORDER BY (symbol, ts)", cfg.ClickHouse.Database, table),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache creates the shared Redis client.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("marketpulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for the news topic.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.NewsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTradeStorage creates the ClickHouse trade store; nil when
// ClickHouse is disabled.
func ProvideTradeStorage(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.TradeStorage {
	if chClient == nil {
		return nil
	}
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "trades"
	}
	store := internalrepo.NewClickHouseTradeStorage(chClient, cfg.ClickHouse.Database+"."+table)
	store.SetLogger(log)
	return store
}

// ProvideBroadcaster creates the Kafka signal broadcaster.
func ProvideBroadcaster(producer *pkgkafka.Producer, cfg *config.Config) repository.Broadcaster {
	return internalrepo.NewKafkaBroadcaster(producer, cfg.Kafka.SignalsTopic)
}

// ProvideWatchlist reads the tracked symbol set from Redis.
func ProvideWatchlist(rc *cache.RedisCache) repository.Watchlist {
	return internalrepo.NewRedisWatchlist(rc)
}

// ProvideSignalStore keeps signal history in Redis.
func ProvideSignalStore(rc *cache.RedisCache) repository.SignalStore {
	return internalrepo.NewRedisSignalStore(rc)
}

// ProvideNewsSupplier creates the news collaborator with Redis-backed
// response caching.
func ProvideNewsSupplier(cfg *config.Config, rc *cache.RedisCache, log *applogger.Logger) *newsfeed.Supplier {
	ttl := cfg.News.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	layered := cache.NewLayeredCache(rc)
	return newsfeed.New(cfg.News.BaseURL, cfg.News.APIKey, layered, ttl, log)
}

// ProvideMarketProviders builds the enabled streaming adapters.
func ProvideMarketProviders(cfg *config.Config, log *applogger.Logger, m repository.Metrics) []repository.MarketProvider {
	var providers []repository.MarketProvider

	if pc := cfg.Providers.Finnhub; pc.Enabled {
		t := provider.NewFinnhub(pc.APIKey, pc.WebSocketURL, pc.RestURL)
		providers = append(providers, provider.NewAdapter(t, pc.Priority, pc.PingInterval, pc.QuoteBudget, pc.HistoryBudget, log, m))
	}
	if pc := cfg.Providers.Alpaca; pc.Enabled {
		t := provider.NewAlpaca(pc.APIKey, pc.APISecret, pc.WebSocketURL, pc.RestURL)
		providers = append(providers, provider.NewAdapter(t, pc.Priority, pc.PingInterval, pc.QuoteBudget, pc.HistoryBudget, log, m))
	}
	return providers
}

// ProvideTradeRecorder batches accepted trades into storage; nil when
// there is no storage to write to.
func ProvideTradeRecorder(storage repository.TradeStorage, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.TradeRecorder {
	if storage == nil {
		return nil
	}
	return usecase.NewTradeRecorder(storage, m, log, cfg.Aggregator.BatchSize, cfg.Aggregator.BatchTimeout)
}

// ProvideQuoteAggregator creates the aggregator over the enabled providers.
// Accepted trades flow through a validate/throttle pipeline into the
// storage batcher when one is configured.
func ProvideQuoteAggregator(
	providers []repository.MarketProvider,
	storage repository.TradeStorage,
	recorder *usecase.TradeRecorder,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.QuoteAggregator {
	staleness := cfg.Aggregator.Staleness
	if staleness == 0 {
		staleness = 10 * time.Second
	}
	var sink usecase.TradeSink
	if recorder != nil {
		sink = mid.NewTradePipeline(recorder, m, mid.WithMaxRPS(50))
	}
	return usecase.NewQuoteAggregator(providers, storage, sink, m, log, staleness)
}

// ProvideSignalEngine creates the signal generator.
func ProvideSignalEngine(
	cfg *config.Config,
	agg *usecase.QuoteAggregator,
	news *newsfeed.Supplier,
	watchlist repository.Watchlist,
	store repository.SignalStore,
	broadcast repository.Broadcaster,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.SignalEngine {
	return usecase.NewSignalEngine(
		usecase.SignalEngineConfig{
			BuyThreshold:    cfg.Signals.BuyThreshold,
			SellThreshold:   cfg.Signals.SellThreshold,
			StabilityWindow: cfg.Signals.StabilityWindow,
			SignalTTL:       cfg.Signals.TTL,
			SweepInterval:   cfg.Signals.SweepInterval,
			RefreshInterval: cfg.Signals.RefreshInterval,
		},
		agg, news, watchlist, store, broadcast, m, log,
	)
}

// ProvideQuoteStream publishes watch-list quote and order-book updates to
// Kafka; nil when no quotes topic is configured.
func ProvideQuoteStream(
	producer *pkgkafka.Producer,
	cfg *config.Config,
	agg *usecase.QuoteAggregator,
	watchlist repository.Watchlist,
	log *applogger.Logger,
) *internalrepo.KafkaQuoteStream {
	if cfg.Kafka.QuotesTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaQuoteStream(producer, cfg.Kafka.QuotesTopic, agg, watchlist, log)
}

// ProvideKafkaNewsHandler registers the handler for the news topic.
func ProvideKafkaNewsHandler(news *newsfeed.Supplier, m repository.Metrics, cfg *config.Config) *usecase.KafkaNewsHandler {
	return usecase.NewKafkaNewsHandler(cfg.Kafka.NewsTopic, news, m)
}

// ProvideHTTPHandler creates the Echo route handler for the query surface.
func ProvideHTTPHandler(log *applogger.Logger, agg *usecase.QuoteAggregator, signals *usecase.SignalEngine) xhttp.Handler {
	h := api.NewMarketHandler(log, agg, signals)
	h.SetCache(icache.NewTTLCache())
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	providers []repository.MarketProvider,
	agg *usecase.QuoteAggregator,
	recorder *usecase.TradeRecorder,
	signals *usecase.SignalEngine,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaNewsHandler,
	broadcast repository.Broadcaster,
	quoteStream *internalrepo.KafkaQuoteStream,
	chClient *pkgch.Client,
	rc *cache.RedisCache,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	var mh pkgkafka.MessageHandler
	if kh != nil && kh.Topic() != "" {
		mh = kh
	}
	return server.New(cfg, log, providers, agg, recorder, signals, consumer, mh, broadcast, quoteStream, chClient, rc, handler)
}
