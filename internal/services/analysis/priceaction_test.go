package analysis

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func hasPattern(patterns []models.CandlePattern, name string) bool {
	for _, p := range patterns {
		if p.Name == name {
			return true
		}
	}
	return false
}

func TestDetectBullishEngulfing(t *testing.T) {
	candles := []models.Candle{
		{Open: 10, Close: 9, High: 10.2, Low: 8.9},
		{Open: 9, Close: 10.5, High: 10.6, Low: 8.95},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "bullish engulfing") {
		t.Fatalf("expected bullish engulfing, got %+v", got)
	}
}

func TestDetectBearishEngulfing(t *testing.T) {
	candles := []models.Candle{
		{Open: 9, Close: 10, High: 10.1, Low: 8.9},
		{Open: 10.2, Close: 8.8, High: 10.3, Low: 8.7},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "bearish engulfing") {
		t.Fatalf("expected bearish engulfing, got %+v", got)
	}
}

func TestDetectDoji(t *testing.T) {
	candles := []models.Candle{
		{Open: 10, Close: 10.01, High: 11, Low: 9},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "doji") {
		t.Fatalf("expected doji, got %+v", got)
	}
}

func TestDetectHammer(t *testing.T) {
	candles := []models.Candle{
		{Open: 10, Close: 10.2, High: 10.25, Low: 9.4},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "hammer") {
		t.Fatalf("expected hammer, got %+v", got)
	}
}

func TestDetectThreeWhiteSoldiers(t *testing.T) {
	candles := []models.Candle{
		{Open: 10, Close: 11, High: 11.1, Low: 9.9},
		{Open: 11, Close: 12, High: 12.1, Low: 10.9},
		{Open: 12, Close: 13, High: 13.1, Low: 11.9},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "three white soldiers") {
		t.Fatalf("expected three white soldiers, got %+v", got)
	}
}

func TestDetectThreeBlackCrows(t *testing.T) {
	candles := []models.Candle{
		{Open: 13, Close: 12, High: 13.1, Low: 11.9},
		{Open: 12, Close: 11, High: 12.1, Low: 10.9},
		{Open: 11, Close: 10, High: 11.1, Low: 9.9},
	}
	got := DetectPatterns(candles)
	if !hasPattern(got, "three black crows") {
		t.Fatalf("expected three black crows, got %+v", got)
	}
}

func TestDetectPatternsEmpty(t *testing.T) {
	if got := DetectPatterns(nil); len(got) != 0 {
		t.Fatalf("expected no patterns, got %+v", got)
	}
}

func TestMomentum(t *testing.T) {
	candles := make([]models.Candle, 11)
	for i := range candles {
		candles[i].Close = 100 + float64(i)
	}
	got := momentum(candles, 10)
	if !almostEqual(got, 10, 1e-9) {
		t.Fatalf("expected 10%%, got %v", got)
	}
	if got := momentum(candles[:5], 10); got != 0 {
		t.Fatalf("expected 0 on short series, got %v", got)
	}
}

func TestFindPivotsAndLevels(t *testing.T) {
	highs := []float64{10, 11, 15, 11, 10, 10.5, 11, 10}
	candles := make([]models.Candle, len(highs))
	for i, h := range highs {
		candles[i] = models.Candle{High: h, Low: h - 2, Close: h - 1}
	}

	pivots := findPivots(candles, true)
	if len(pivots) != 1 || pivots[0] != 15 {
		t.Fatalf("expected single pivot at 15, got %v", pivots)
	}

	levels := consolidateLevels([]float64{100, 101, 150}, "resistance")
	if len(levels) != 2 {
		t.Fatalf("expected 2 consolidated levels, got %+v", levels)
	}
	if levels[0].Touches != 2 || !almostEqual(levels[0].Price, 100.5, 1e-9) {
		t.Fatalf("expected merged level at 100.5 with 2 touches, got %+v", levels[0])
	}
}

func TestPriceActionShortSeries(t *testing.T) {
	pa := PriceAction("AAPL", []models.Candle{{Close: 10}})
	if pa.Volatility != 0 || pa.Momentum != 0 {
		t.Fatalf("expected zero stats, got %+v", pa)
	}
	if pa.Support == nil || pa.Resistance == nil || pa.Patterns == nil {
		t.Fatalf("expected empty slices, not nil")
	}
}

func TestAnnualizedVolatilityFlat(t *testing.T) {
	now := time.Now()
	candles := make([]models.Candle, 20)
	for i := range candles {
		candles[i] = models.Candle{Close: 100, Timestamp: now.AddDate(0, 0, i)}
	}
	if got := annualizedVolatility(candles); got != 0 {
		t.Fatalf("expected 0 volatility, got %v", got)
	}
}
