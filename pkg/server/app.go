package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	drepo "MarketPulse/internal/domain/repository"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	providers []drepo.MarketProvider
	agg       *usecase.QuoteAggregator
	recorder  *usecase.TradeRecorder
	signals   *usecase.SignalEngine
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	broadcast   drepo.Broadcaster
	quoteStream *internalrepo.KafkaQuoteStream
	chClient    *pkgch.Client
	redis       *cache.RedisCache
	handler     xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	providers []drepo.MarketProvider,
	agg *usecase.QuoteAggregator,
	recorder *usecase.TradeRecorder,
	signals *usecase.SignalEngine,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	broadcast drepo.Broadcaster,
	quoteStream *internalrepo.KafkaQuoteStream,
	chClient *pkgch.Client,
	redis *cache.RedisCache,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		providers:   providers,
		agg:         agg,
		recorder:    recorder,
		signals:     signals,
		consumer:    consumer,
		kh:          kh,
		broadcast:   broadcast,
		quoteStream: quoteStream,
		chClient:    chClient,
		redis:       redis,
		handler:     handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)

	// Connect providers; a provider that cannot connect keeps retrying on
	// its own and must not block startup.
	for _, p := range a.providers {
		p := p
		go func() {
			if err := p.Connect(ctx); err != nil {
				a.log.Error("provider connect error",
					applogger.String("provider", p.Name()), applogger.Error(err))
			}
		}()
	}
	a.log.Info("providers starting", applogger.Int("count", len(a.providers)))

	a.agg.Start(ctx)
	if a.recorder != nil {
		a.recorder.Start(ctx)
	}
	a.signals.Start(ctx)
	if a.quoteStream != nil {
		a.quoteStream.Start(ctx)
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for s := range sigCh {
		// SIGHUP recovers providers halted by auth failure or exhausted
		// reconnects without restarting the process.
		if s == syscall.SIGHUP {
			for _, p := range a.providers {
				p.Restart()
			}
			a.log.Info("providers restarted", applogger.Int("count", len(a.providers)))
			continue
		}
		break
	}

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services: providers first so no new
// events arrive, then the recorder flush, then the outward boundaries.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	for _, p := range a.providers {
		if err := p.Close(); err != nil {
			l.Warn("provider close error",
				applogger.String("provider", p.Name()), applogger.Error(err))
		}
	}

	if a.quoteStream != nil {
		a.quoteStream.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Stop()
	}

	if a.broadcast != nil {
		if err := a.broadcast.Close(); err != nil {
			l.Warn("broadcaster close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
