package models

import "time"

// MarketSession tags which trading session a quote was observed in.
type MarketSession string

const (
	SessionPreMarket  MarketSession = "pre-market"
	SessionRegular    MarketSession = "regular"
	SessionAfterHours MarketSession = "after-hours"
	SessionClosed     MarketSession = "closed"
)

// Quote is the authoritative per-symbol view assembled from provider events.
// Timestamp is monotonic per symbol: older updates are dropped by the aggregator.
type Quote struct {
	Symbol        string        `json:"symbol"`
	Price         float64       `json:"price"`
	Change        float64       `json:"change"`
	ChangePercent float64       `json:"changePercent"`
	Volume        float64       `json:"volume"`
	Timestamp     time.Time     `json:"timestamp"`
	Open          float64       `json:"open,omitempty"`
	High          float64       `json:"high,omitempty"`
	Low           float64       `json:"low,omitempty"`
	PreviousClose float64       `json:"previousClose,omitempty"`
	Session       MarketSession `json:"session,omitempty"`
	PreMarket     *SessionQuote `json:"preMarket,omitempty"`
	AfterHours    *SessionQuote `json:"afterHours,omitempty"`
	Source        string        `json:"source,omitempty"`
}

// SessionQuote carries extended-hours price info attached to a Quote.
type SessionQuote struct {
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Trade is a normalized last-sale event emitted by a provider adapter.
type Trade struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
	Source    string
}

// BookQuote is a normalized bid/ask event. It feeds order-book subscribers
// only and never mutates the trade-side quote cache.
type BookQuote struct {
	Symbol    string
	BidPrice  float64
	BidSize   float64
	AskPrice  float64
	AskSize   float64
	Timestamp time.Time
	Source    string
}
