package models

import "time"

// Candle is one OHLCV bar. A []Candle history is ordered ascending by
// timestamp; gaps are tolerated and duplicate timestamps overwrite.
type Candle struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryRange is the caller-facing history window keyword.
type HistoryRange string

const (
	RangeWeek    HistoryRange = "1w"
	RangeMonth   HistoryRange = "1mo"
	RangeQuarter HistoryRange = "3mo"
	RangeYear    HistoryRange = "1y"
	RangeMax     HistoryRange = "max"
)

// NormalizeRange maps loose user input onto a known HistoryRange,
// defaulting to one month.
func NormalizeRange(s string) HistoryRange {
	switch HistoryRange(s) {
	case RangeWeek, RangeMonth, RangeQuarter, RangeYear, RangeMax:
		return HistoryRange(s)
	}
	switch s {
	case "1week", "week":
		return RangeWeek
	case "1month", "month":
		return RangeMonth
	case "3month", "quarter":
		return RangeQuarter
	case "1year", "year":
		return RangeYear
	}
	return RangeMonth
}

// CandleHistory pairs a candle series with a provenance flag so synthetic
// fallback data is never mistaken for real history downstream.
type CandleHistory struct {
	Symbol    string   `json:"symbol"`
	Candles   []Candle `json:"candles"`
	Synthetic bool     `json:"synthetic"`
}
