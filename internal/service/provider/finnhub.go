package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/marketcal"
	xhttp "MarketPulse/pkg/http"
)

// FinnhubTransport speaks the Finnhub WebSocket and REST protocols.
// Authentication is the token in the connect URL; a successful dial is a
// successful auth.
type FinnhubTransport struct {
	apiKey       string
	websocketURL string
	restURL      string
	rest         *xhttp.Client

	conn *websocket.Conn
}

// NewFinnhub creates the Finnhub transport.
func NewFinnhub(apiKey, websocketURL, restURL string) *FinnhubTransport {
	return &FinnhubTransport{
		apiKey:       apiKey,
		websocketURL: websocketURL,
		restURL:      restURL,
		rest:         xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
}

func (t *FinnhubTransport) Name() string { return "finnhub" }

func (t *FinnhubTransport) Dial(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", t.websocketURL, t.apiKey)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 429 {
			return fmt.Errorf("finnhub dial: %w", ErrRateLimited)
		}
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			return fmt.Errorf("finnhub dial: %w", ErrAuthFailed)
		}
		return fmt.Errorf("finnhub dial: %w", err)
	}
	t.conn = conn
	return nil
}

// Authenticate is a no-op: the token rides in the dial URL.
func (t *FinnhubTransport) Authenticate(ctx context.Context) error { return nil }

func (t *FinnhubTransport) WriteSubscribe(symbols []string) error {
	for _, s := range symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := t.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	return nil
}

func (t *FinnhubTransport) WriteUnsubscribe(symbols []string) error {
	for _, s := range symbols {
		msg := map[string]string{"type": "unsubscribe", "symbol": s}
		if err := t.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", s, err)
		}
	}
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Msg  string    `json:"msg"`
	Data []fhTrade `json:"data"`
}

func (t *FinnhubTransport) ReadEvents() ([]drepo.Event, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("finnhub conn nil")
	}
	_, b, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("finnhub read: %w", err)
	}

	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil {
		// unrecognized frame; skip
		return nil, nil
	}
	switch m.Type {
	case "trade":
	case "error":
		if IsRateLimit(fmt.Errorf("%s", m.Msg)) {
			return nil, fmt.Errorf("finnhub: %s: %w", m.Msg, ErrRateLimited)
		}
		return nil, nil
	default:
		// ping and friends
		return nil, nil
	}

	events := make([]drepo.Event, 0, len(m.Data))
	for _, d := range m.Data {
		events = append(events, drepo.Event{Trade: &models.Trade{
			Symbol:    d.S,
			Price:     d.P,
			Volume:    d.V,
			Timestamp: time.UnixMilli(d.T),
			Source:    t.Name(),
		}})
	}
	return events, nil
}

func (t *FinnhubTransport) Ping() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *FinnhubTransport) Close() error {
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

type fhQuote struct {
	C  float64 `json:"c"`  // current
	D  float64 `json:"d"`  // change
	DP float64 `json:"dp"` // change percent
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"` // previous close
	T  int64   `json:"t"`  // unix seconds
}

func (t *FinnhubTransport) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var q fhQuote
	err := t.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    t.restURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {t.apiKey},
		},
	}, &q)
	if err != nil {
		return nil, fmt.Errorf("finnhub quote: %w", err)
	}
	if q.C == 0 && q.T == 0 {
		return nil, nil // unknown symbol; no data
	}
	return &models.Quote{
		Symbol:        symbol,
		Price:         q.C,
		Change:        q.D,
		ChangePercent: q.DP,
		Open:          q.O,
		High:          q.H,
		Low:           q.L,
		PreviousClose: q.PC,
		Timestamp:     time.Unix(q.T, 0),
		Source:        t.Name(),
	}, nil
}

type fhCandles struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	V []float64 `json:"v"`
	T []int64   `json:"t"`
	S string    `json:"s"` // "ok" | "no_data"
}

func (t *FinnhubTransport) FetchCandles(ctx context.Context, symbol string, win marketcal.Window) ([]models.Candle, error) {
	var cc fhCandles
	err := t.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    t.restURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {string(win.Resolution)},
			"from":       {strconv.FormatInt(win.From.Unix(), 10)},
			"to":         {strconv.FormatInt(win.To.Unix(), 10)},
			"token":      {t.apiKey},
		},
	}, &cc)
	if err != nil {
		return nil, fmt.Errorf("finnhub candles: %w", err)
	}
	if cc.S != "ok" || len(cc.T) == 0 {
		return nil, nil
	}

	candles := make([]models.Candle, 0, len(cc.T))
	for i := range cc.T {
		if i >= len(cc.O) || i >= len(cc.H) || i >= len(cc.L) || i >= len(cc.C) || i >= len(cc.V) {
			break
		}
		candles = append(candles, models.Candle{
			Open:      cc.O[i],
			High:      cc.H[i],
			Low:       cc.L[i],
			Close:     cc.C[i],
			Volume:    cc.V[i],
			Timestamp: time.Unix(cc.T[i], 0),
		})
	}
	return candles, nil
}

var _ Transport = (*FinnhubTransport)(nil)
