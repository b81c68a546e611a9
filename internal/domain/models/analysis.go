package models

import "time"

// TechnicalAnalysis is the indicator snapshot plus composite classification.
type TechnicalAnalysis struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	SMA20         float64 `json:"sma20"`
	SMA50         float64 `json:"sma50"`
	EMA12         float64 `json:"ema12"`
	EMA26         float64 `json:"ema26"`
	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macdSignal"`
	MACDHistogram float64 `json:"macdHistogram"`
	UpperBand     float64 `json:"upperBand"`
	MiddleBand    float64 `json:"middleBand"`
	LowerBand     float64 `json:"lowerBand"`
	ATR           float64 `json:"atr"`
	VolumeRatio   float64 `json:"volumeRatio"`
	Trend         string  `json:"trend"`      // bullish, bearish
	Momentum      string  `json:"momentum"`   // overbought, oversold, neutral
	Volatility    string  `json:"volatility"` // high, normal, low
}

// SentimentAnalysis summarizes scored news for one symbol.
type SentimentAnalysis struct {
	Symbol      string   `json:"symbol"`
	Score       float64  `json:"score"`       // flat mean, [-1,1]
	RecentScore float64  `json:"recentScore"` // recency-weighted
	Label       string   `json:"label"`       // bullish, bearish, neutral
	Confidence  float64  `json:"confidence"`
	Trend       string   `json:"trend"` // improving, declining, stable
	RiskScore   float64  `json:"riskScore"`
	RiskLevel   string   `json:"riskLevel"` // high, medium, low
	Topics      []string `json:"topics"`
	NewsCount   int      `json:"newsCount"`
	External    bool     `json:"external,omitempty"` // supplier-precomputed, not derived from the local feed
}

// CandlePattern is one detected candlestick pattern with a fixed confidence.
type CandlePattern struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"` // bullish, bearish, neutral
	Confidence float64 `json:"confidence"`
}

// PriceLevel is a consolidated support or resistance band.
type PriceLevel struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
	Kind    string  `json:"kind"` // support, resistance
}

// PriceActionAnalysis covers volatility, momentum, levels, and patterns.
type PriceActionAnalysis struct {
	Symbol     string          `json:"symbol"`
	Volatility float64         `json:"volatility"` // annualized
	Momentum   float64         `json:"momentum"`   // % change over 10 candles
	Support    []PriceLevel    `json:"support"`
	Resistance []PriceLevel    `json:"resistance"`
	Patterns   []CandlePattern `json:"patterns"`
}

// ComprehensiveAnalysis is the full on-demand view returned by getAnalysis.
type ComprehensiveAnalysis struct {
	Symbol      string               `json:"symbol"`
	Quote       *Quote               `json:"quote"`
	Technical   *TechnicalAnalysis   `json:"technical"`
	Sentiment   *SentimentAnalysis   `json:"sentiment"`
	PriceAction *PriceActionAnalysis `json:"priceAction"`
	Signal      *TradingSignal       `json:"signal,omitempty"`
	Synthetic   bool                 `json:"synthetic"` // candle series was estimated
	GeneratedAt time.Time            `json:"generatedAt"`
}
