package models

import "time"

// SignalType is the committed trading decision.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// SignalReasoning is one contributing rule in a signal's explanation.
type SignalReasoning struct {
	Source      string  `json:"source"` // technical, sentiment, price-action, volume
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// TradingSignal is an immutable, scored decision for one symbol. The next
// generation cycle supersedes it; it leaves the active set once ExpiresAt
// passes.
type TradingSignal struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Type        SignalType        `json:"type"`
	Strength    int               `json:"strength"` // 0..100
	Price       float64           `json:"price"`
	TargetPrice float64           `json:"targetPrice,omitempty"`
	StopLoss    float64           `json:"stopLoss,omitempty"`
	Reasoning   []SignalReasoning `json:"reasoning"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// Expired reports whether the signal has passed its expiry at the given time.
func (s *TradingSignal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SignalState is the last committed decision per symbol, kept only to drive
// hysteresis. Overwritten on every generation cycle.
type SignalState struct {
	Type      SignalType
	NetScore  float64
	Timestamp time.Time
}
