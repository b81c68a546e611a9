package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/marketcal"
	xhttp "MarketPulse/pkg/http"
)

// AlpacaTransport speaks the Alpaca market-data stream protocol: an explicit
// auth frame after dial, then subscribe frames with separate trade and quote
// symbol lists. Quote frames become order-book events.
type AlpacaTransport struct {
	keyID     string
	secretKey string
	streamURL string
	restURL   string
	rest      *xhttp.Client

	conn *websocket.Conn
}

// NewAlpaca creates the Alpaca transport.
func NewAlpaca(keyID, secretKey, streamURL, restURL string) *AlpacaTransport {
	return &AlpacaTransport{
		keyID:     keyID,
		secretKey: secretKey,
		streamURL: streamURL,
		restURL:   restURL,
		rest:      xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
}

func (t *AlpacaTransport) Name() string { return "alpaca" }

func (t *AlpacaTransport) Dial(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.streamURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 429 {
			return fmt.Errorf("alpaca dial: %w", ErrRateLimited)
		}
		return fmt.Errorf("alpaca dial: %w", err)
	}
	t.conn = conn
	return nil
}

type alpacaControl struct {
	T   string `json:"T"`
	Msg string `json:"msg"`
}

// Authenticate sends the auth frame and waits for the success ack.
// An error ack is terminal for this connection attempt.
func (t *AlpacaTransport) Authenticate(ctx context.Context) error {
	auth := map[string]string{"action": "auth", "key": t.keyID, "secret": t.secretKey}
	if err := t.conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("alpaca auth write: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
		defer t.conn.SetReadDeadline(time.Time{})
	}

	// The stream acks with [{"T":"success","msg":"authenticated"}].
	for {
		_, b, err := t.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("alpaca auth read: %w", err)
		}
		var acks []alpacaControl
		if err := json.Unmarshal(b, &acks); err != nil {
			continue
		}
		for _, ack := range acks {
			switch ack.T {
			case "success":
				if ack.Msg == "authenticated" {
					return nil
				}
			case "error":
				if IsRateLimit(fmt.Errorf("%s", ack.Msg)) {
					return fmt.Errorf("alpaca: %s: %w", ack.Msg, ErrRateLimited)
				}
				return fmt.Errorf("alpaca: %s: %w", ack.Msg, ErrAuthFailed)
			}
		}
	}
}

func (t *AlpacaTransport) WriteSubscribe(symbols []string) error {
	msg := map[string]interface{}{
		"action": "subscribe",
		"trades": symbols,
		"quotes": symbols,
	}
	if err := t.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("alpaca subscribe: %w", err)
	}
	return nil
}

func (t *AlpacaTransport) WriteUnsubscribe(symbols []string) error {
	msg := map[string]interface{}{
		"action": "unsubscribe",
		"trades": symbols,
		"quotes": symbols,
	}
	if err := t.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("alpaca unsubscribe: %w", err)
	}
	return nil
}

type alpacaFrame struct {
	T  string    `json:"T"` // "t" trade, "q" quote, control otherwise
	S  string    `json:"S"`
	P  float64   `json:"p"`  // trade price
	Sz float64   `json:"s"`  // trade size
	BP float64   `json:"bp"` // bid price
	BS float64   `json:"bs"` // bid size
	AP float64   `json:"ap"` // ask price
	AS float64   `json:"as"` // ask size
	TS time.Time `json:"t"`
	Ms string    `json:"msg"`
}

func (t *AlpacaTransport) ReadEvents() ([]drepo.Event, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("alpaca conn nil")
	}
	_, b, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("alpaca read: %w", err)
	}

	var frames []alpacaFrame
	if err := json.Unmarshal(b, &frames); err != nil {
		// unrecognized frame; skip
		return nil, nil
	}

	events := make([]drepo.Event, 0, len(frames))
	for _, f := range frames {
		switch f.T {
		case "t":
			events = append(events, drepo.Event{Trade: &models.Trade{
				Symbol:    f.S,
				Price:     f.P,
				Volume:    f.Sz,
				Timestamp: f.TS,
				Source:    t.Name(),
			}})
		case "q":
			events = append(events, drepo.Event{Book: &models.BookQuote{
				Symbol:    f.S,
				BidPrice:  f.BP,
				BidSize:   f.BS,
				AskPrice:  f.AP,
				AskSize:   f.AS,
				Timestamp: f.TS,
				Source:    t.Name(),
			}})
		case "error":
			if IsRateLimit(fmt.Errorf("%s", f.Ms)) {
				return nil, fmt.Errorf("alpaca: %s: %w", f.Ms, ErrRateLimited)
			}
			// non-fatal stream error; skip the frame
		}
	}
	return events, nil
}

func (t *AlpacaTransport) Ping() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *AlpacaTransport) Close() error {
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

func (t *AlpacaTransport) authHeaders() map[string]string {
	return map[string]string{
		"APCA-API-KEY-ID":     t.keyID,
		"APCA-API-SECRET-KEY": t.secretKey,
	}
}

type alpacaLatestTrade struct {
	Trade struct {
		P  float64   `json:"p"`
		S  float64   `json:"s"`
		TS time.Time `json:"t"`
	} `json:"trade"`
	Symbol string `json:"symbol"`
}

func (t *AlpacaTransport) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var lt alpacaLatestTrade
	err := t.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/v2/stocks/%s/trades/latest", t.restURL, symbol),
		Headers: t.authHeaders(),
	}, &lt)
	if err != nil {
		return nil, fmt.Errorf("alpaca quote: %w", err)
	}
	if lt.Trade.P == 0 {
		return nil, nil
	}
	return &models.Quote{
		Symbol:    symbol,
		Price:     lt.Trade.P,
		Volume:    lt.Trade.S,
		Timestamp: lt.Trade.TS,
		Source:    t.Name(),
	}, nil
}

type alpacaBars struct {
	Bars []struct {
		O  float64   `json:"o"`
		H  float64   `json:"h"`
		L  float64   `json:"l"`
		C  float64   `json:"c"`
		V  float64   `json:"v"`
		TS time.Time `json:"t"`
	} `json:"bars"`
	Symbol string `json:"symbol"`
}

func (t *AlpacaTransport) FetchCandles(ctx context.Context, symbol string, win marketcal.Window) ([]models.Candle, error) {
	timeframe := "1Day"
	if win.Resolution == marketcal.ResolutionWeekly {
		timeframe = "1Week"
	}

	var bars alpacaBars
	err := t.rest.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/v2/stocks/%s/bars", t.restURL, symbol),
		Headers: t.authHeaders(),
		QueryParams: map[string][]string{
			"timeframe": {timeframe},
			"start":     {win.From.UTC().Format(time.RFC3339)},
			"end":       {win.To.UTC().Format(time.RFC3339)},
			"limit":     {"1000"},
		},
	}, &bars)
	if err != nil {
		return nil, fmt.Errorf("alpaca bars: %w", err)
	}

	candles := make([]models.Candle, 0, len(bars.Bars))
	for _, b := range bars.Bars {
		candles = append(candles, models.Candle{
			Open:      b.O,
			High:      b.H,
			Low:       b.L,
			Close:     b.C,
			Volume:    b.V,
			Timestamp: b.TS,
		})
	}
	return candles, nil
}

var _ Transport = (*AlpacaTransport)(nil)
