// Package provider implements the streaming source adapters. Each adapter
// owns one persistent WebSocket connection, the symbol subscription set for
// that source, and the reconnect/backoff lifecycle. Provider-specific wire
// protocols live behind the Transport interface; Adapter is the shared
// connection state machine.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/marketcal"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/pkg/logger"
)

// ConnState is the adapter connection state.
type ConnState string

const (
	StateDisconnected   ConnState = "disconnected"
	StateConnecting     ConnState = "connecting"
	StateAuthenticating ConnState = "authenticating"
	StateConnected      ConnState = "connected"
	StateRateLimited    ConnState = "rate-limited"
)

// Reconnect and rate-limit backoff policy.
const (
	reconnectInitial  = 1 * time.Second
	reconnectMax      = 30 * time.Second
	reconnectAttempts = 5

	rateLimitInitial = 60 * time.Second
	rateLimitMax     = 10 * time.Minute

	connectTimeout = 5 * time.Second

	eventBuffer = 1024
)

// REST pacing: burst capacities are fixed, refill rates come from config.
const (
	restQuoteBurst   = 30.0
	restHistoryBurst = 10.0

	defaultQuoteBudget   = 0.5 // calls per second
	defaultHistoryBudget = 0.2
)

// Transport is the provider-specific wire protocol behind an Adapter.
// ReadEvents blocks until a frame arrives; malformed frames return
// (nil, nil) and are skipped.
type Transport interface {
	Name() string
	Dial(ctx context.Context) error
	Authenticate(ctx context.Context) error
	WriteSubscribe(symbols []string) error
	WriteUnsubscribe(symbols []string) error
	ReadEvents() ([]drepo.Event, error)
	Ping() error
	Close() error

	// Point-in-time REST fallback.
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
	FetchCandles(ctx context.Context, symbol string, win marketcal.Window) ([]models.Candle, error)
}

// Adapter drives a Transport through the connection state machine and
// emits normalized events to the aggregator.
type Adapter struct {
	transport    Transport
	priority     int
	pingInterval time.Duration
	log          *logger.Logger
	metrics      drepo.Metrics
	limiter      *ratelimit.Limiter

	quoteBudget   float64
	historyBudget float64

	events chan drepo.Event

	mu          sync.Mutex
	state       ConnState
	attempts    int
	rlBackoff   time.Duration
	rlRelease   time.Time
	authBlocked bool
	abandoned   bool
	subscribed  map[string]struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewAdapter wraps a transport into a managed provider adapter. The
// budgets pace the REST fallback paths in calls per second; zero means
// the default.
func NewAdapter(t Transport, priority int, pingInterval time.Duration, quoteBudget, historyBudget float64, log *logger.Logger, metrics drepo.Metrics) *Adapter {
	if quoteBudget <= 0 {
		quoteBudget = defaultQuoteBudget
	}
	if historyBudget <= 0 {
		historyBudget = defaultHistoryBudget
	}
	return &Adapter{
		transport:     t,
		priority:      priority,
		pingInterval:  pingInterval,
		log:           log,
		metrics:       metrics,
		limiter:       ratelimit.New(),
		quoteBudget:   quoteBudget,
		historyBudget: historyBudget,
		events:        make(chan drepo.Event, eventBuffer),
		state:         StateDisconnected,
		rlBackoff:     rateLimitInitial,
		subscribed:    make(map[string]struct{}),
	}
}

func (a *Adapter) Name() string { return a.transport.Name() }

func (a *Adapter) Priority() int { return a.priority }

func (a *Adapter) Events() <-chan drepo.Event { return a.events }

// State returns the current connection state.
func (a *Adapter) State() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) IsConnected() bool { return a.State() == StateConnected }

// Connect performs the initial dial synchronously and starts the manage
// loop that owns all subsequent reconnects.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return fmt.Errorf("%s: already started", a.transport.Name())
	}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	if err := a.establish(ctx); err != nil {
		a.recordFailure(err)
	}

	go a.manage(runCtx)
	return nil
}

// Restart clears a fatal condition (abandoned reconnects or blocked auth)
// and relaunches the manage loop when that condition stopped it. This is
// the external-restart hook, reachable at runtime via SIGHUP.
func (a *Adapter) Restart() {
	a.mu.Lock()
	a.authBlocked = false
	a.abandoned = false
	a.attempts = 0
	a.rlBackoff = rateLimitInitial
	a.rlRelease = time.Time{}

	if a.cancel != nil {
		select {
		case <-a.done:
			// The loop exited on a fatal condition; spawn a fresh one.
			a.cancel()
			runCtx, cancel := context.WithCancel(context.Background())
			a.cancel = cancel
			a.done = make(chan struct{})
			a.state = StateDisconnected
			go a.manage(runCtx)
		default:
		}
	}
	a.mu.Unlock()
	a.log.Info("provider restarted", logger.String("provider", a.transport.Name()))
}

// Close stops the manage loop and closes the transport. The transport
// closes first so a blocked ReadEvents unblocks before the loop is waited
// on.
func (a *Adapter) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.cancel = nil
	a.mu.Unlock()

	err := a.transport.Close()
	if cancel != nil {
		cancel()
		<-done
	}
	return err
}

// Subscribe adds symbols to the adapter's set and pushes the subscription
// upstream when connected. The set survives reconnects.
func (a *Adapter) Subscribe(ctx context.Context, symbols []string) error {
	a.mu.Lock()
	pending := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := a.subscribed[s]; !ok {
			a.subscribed[s] = struct{}{}
			pending = append(pending, s)
		}
	}
	connected := a.state == StateConnected
	a.mu.Unlock()

	if len(pending) == 0 || !connected {
		return nil
	}
	return a.transport.WriteSubscribe(pending)
}

// Unsubscribe removes symbols from the set; unknown symbols are ignored.
func (a *Adapter) Unsubscribe(ctx context.Context, symbols []string) error {
	a.mu.Lock()
	removed := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := a.subscribed[s]; ok {
			delete(a.subscribed, s)
			removed = append(removed, s)
		}
	}
	connected := a.state == StateConnected
	a.mu.Unlock()

	if len(removed) == 0 || !connected {
		return nil
	}
	return a.transport.WriteUnsubscribe(removed)
}

// GetQuote is the REST fallback query, paced by a local token bucket so
// on-demand callers cannot trip the provider's rate limit.
func (a *Adapter) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !a.limiter.Allow(a.transport.Name()+":quote", restQuoteBurst, a.quoteBudget) {
		return nil, ErrRateLimited
	}
	q, err := a.transport.FetchQuote(ctx, symbol)
	if err != nil {
		a.noteQueryError(err)
		return nil, err
	}
	return q, nil
}

// GetHistory resolves the range in the exchange calendar and queries the
// provider's candle endpoint.
func (a *Adapter) GetHistory(ctx context.Context, symbol string, rng models.HistoryRange) ([]models.Candle, error) {
	if !a.limiter.Allow(a.transport.Name()+":history", restHistoryBurst, a.historyBudget) {
		return nil, ErrRateLimited
	}
	win := marketcal.RangeWindow(rng, time.Now())
	cs, err := a.transport.FetchCandles(ctx, symbol, win)
	if err != nil {
		a.noteQueryError(err)
		return nil, err
	}
	return cs, nil
}

// manage owns the reconnect loop. It exits when the context is cancelled
// or a fatal condition (auth failure, abandoned reconnects) is reached,
// leaving the adapter disconnected until Restart.
func (a *Adapter) manage(ctx context.Context) {
	defer close(a.done)

	for {
		a.mu.Lock()
		state := a.state
		blocked := a.authBlocked || a.abandoned
		attempts := a.attempts
		release := a.rlRelease
		a.mu.Unlock()

		if blocked {
			a.log.Error("provider halted, awaiting external restart",
				logger.String("provider", a.transport.Name()),
				logger.String("state", string(state)))
			return
		}

		switch state {
		case StateConnected:
			a.readUntilClosed(ctx)
			if ctx.Err() != nil {
				return
			}
			continue

		case StateRateLimited:
			if !a.sleep(ctx, time.Until(release)) {
				return
			}

		case StateDisconnected:
			if attempts >= reconnectAttempts {
				a.mu.Lock()
				a.abandoned = true
				a.mu.Unlock()
				a.metrics.RecordError("reconnect_abandoned")
				a.log.Error("reconnect attempts exhausted",
					logger.String("provider", a.transport.Name()),
					logger.Int("attempts", attempts))
				return
			}
			if attempts > 0 {
				if !a.sleep(ctx, backoffDelay(attempts)) {
					return
				}
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err := a.establish(ctx); err != nil {
			a.recordFailure(err)
		}
	}
}

// establish runs one dial+auth+resubscribe cycle within the fixed
// connect timeout.
func (a *Adapter) establish(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	a.setState(StateConnecting)
	if err := a.transport.Dial(dialCtx); err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	a.setState(StateAuthenticating)
	if err := a.transport.Authenticate(dialCtx); err != nil {
		_ = a.transport.Close()
		return fmt.Errorf("auth: %w", err)
	}

	a.mu.Lock()
	symbols := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		symbols = append(symbols, s)
	}
	a.state = StateConnected
	a.attempts = 0
	a.rlBackoff = rateLimitInitial
	a.mu.Unlock()

	// Idempotent resubscribe preserves subscriber continuity.
	if len(symbols) > 0 {
		if err := a.transport.WriteSubscribe(symbols); err != nil {
			_ = a.transport.Close()
			a.setState(StateDisconnected)
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	a.metrics.RecordReconnect(a.transport.Name())
	a.log.Info("provider connected",
		logger.String("provider", a.transport.Name()),
		logger.Int("symbols", len(symbols)))
	return nil
}

// readUntilClosed pumps transport frames into the event channel until the
// connection drops or ctx is cancelled.
func (a *Adapter) readUntilClosed(ctx context.Context) {
	stopPing := make(chan struct{})
	if a.pingInterval > 0 {
		go func() {
			ticker := time.NewTicker(a.pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stopPing:
					return
				case <-ticker.C:
					_ = a.transport.Ping()
				}
			}
		}()
	}
	defer close(stopPing)

	for {
		if ctx.Err() != nil {
			return
		}
		evs, err := a.transport.ReadEvents()
		if err != nil {
			_ = a.transport.Close()
			a.recordFailure(err)
			a.log.Warn("provider stream closed",
				logger.String("provider", a.transport.Name()),
				logger.Error(err))
			return
		}
		for _, ev := range evs {
			select {
			case a.events <- ev:
				a.metrics.RecordEvent(a.transport.Name(), eventKind(ev))
			default:
				// slow consumer; drop rather than stall the read loop
				a.metrics.RecordError("event_drop")
			}
		}
	}
}

// recordFailure classifies an error and advances the state machine.
func (a *Adapter) recordFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case IsRateLimit(err):
		a.state = StateRateLimited
		a.rlRelease = time.Now().Add(a.rlBackoff)
		a.rlBackoff *= 2
		if a.rlBackoff > rateLimitMax {
			a.rlBackoff = rateLimitMax
		}
		a.metrics.RecordError("rate_limited")

	case IsAuthFailure(err):
		a.state = StateDisconnected
		a.authBlocked = true
		a.metrics.RecordError("auth_failed")

	default:
		a.state = StateDisconnected
		a.attempts++
		a.metrics.RecordError("stream")
	}
}

// noteQueryError promotes a rate-limit rejection on the REST path into the
// connection state machine as well.
func (a *Adapter) noteQueryError(err error) {
	if IsRateLimit(err) {
		a.recordFailure(err)
	}
}

func (a *Adapter) setState(s ConnState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Adapter) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoffDelay is the exponential reconnect schedule: 1s, 2s, 4s, ...
// capped at 30s.
func backoffDelay(attempt int) time.Duration {
	d := reconnectInitial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= reconnectMax {
			return reconnectMax
		}
	}
	return d
}

func eventKind(ev drepo.Event) string {
	if ev.Trade != nil {
		return "trade"
	}
	return "quote"
}

var _ drepo.MarketProvider = (*Adapter)(nil)
