//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTradeStorage,
		ProvideBroadcaster,
		ProvideWatchlist,
		ProvideSignalStore,
		ProvideNewsSupplier,
		ProvideMarketProviders,

		// Use cases
		ProvideTradeRecorder,
		ProvideQuoteAggregator,
		ProvideSignalEngine,
		ProvideKafkaNewsHandler,
		ProvideQuoteStream,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
