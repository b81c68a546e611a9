package analysis

import (
	"math"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 5)
	if got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	got = SMA([]float64{1, 2, 3, 4, 5}, 2)
	if got != 4.5 {
		t.Fatalf("expected 4.5, got %v", got)
	}
}

func TestSMAShortInput(t *testing.T) {
	if got := SMA([]float64{1, 2}, 5); got != 0 {
		t.Fatalf("expected 0 for short input, got %v", got)
	}
	if got := SMA(nil, 5); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
}

func TestEMASeedEqualsSMA(t *testing.T) {
	vals := []float64{2, 4, 6, 8}
	if got := EMA(vals, 4); got != 5 {
		t.Fatalf("expected SMA seed 5, got %v", got)
	}
}

func TestEMAPeriodOne(t *testing.T) {
	// With period 1 the multiplier is 1 and the EMA tracks the input.
	if got := EMA([]float64{2, 4, 6}, 1); got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}

func TestEMAShortInput(t *testing.T) {
	if got := EMA([]float64{1, 2}, 3); got != 0 {
		t.Fatalf("expected 0 for short input, got %v", got)
	}
}

func TestRSIShortInputNeutral(t *testing.T) {
	if got := RSI([]float64{1, 2, 3}, 14); got != 50 {
		t.Fatalf("expected neutral 50, got %v", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	if got := RSI(closes, 5); got != 100 {
		t.Fatalf("expected 100 with zero losses, got %v", got)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Two gains seed the averages, one loss smooths in: avgGain == avgLoss.
	got := RSI([]float64{1, 2, 3, 2}, 2)
	if !almostEqual(got, 50, 1e-9) {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestMACDShortInput(t *testing.T) {
	got := MACD([]float64{1, 2, 3}, 12, 26, 9)
	if got.MACD != 0 || got.Signal != 0 || got.Histogram != 0 {
		t.Fatalf("expected zero result, got %+v", got)
	}
}

func TestMACDConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	got := MACD(closes, 12, 26, 9)
	if !almostEqual(got.MACD, 0, 1e-9) || !almostEqual(got.Histogram, 0, 1e-9) {
		t.Fatalf("expected flat MACD, got %+v", got)
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 10
	}
	b := Bollinger(closes, 20, 2)
	if b.Upper != 10 || b.Middle != 10 || b.Lower != 10 {
		t.Fatalf("expected collapsed bands, got %+v", b)
	}
}

func TestBollingerShortInput(t *testing.T) {
	b := Bollinger([]float64{1, 2}, 20, 2)
	if b.Upper != 0 || b.Middle != 0 || b.Lower != 0 {
		t.Fatalf("expected zero bands, got %+v", b)
	}
}

func TestATR(t *testing.T) {
	candles := []models.Candle{
		{High: 10, Low: 10, Close: 10},
		{High: 12, Low: 8, Close: 10},
		{High: 11, Low: 9, Close: 10},
	}
	// True ranges of the last two candles are 4 and 2.
	if got := ATR(candles, 2); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestATRShortInput(t *testing.T) {
	if got := ATR([]models.Candle{{High: 2, Low: 1}}, 14); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestVolumeRatio(t *testing.T) {
	if got := VolumeRatio([]float64{1, 1, 1, 2}, 2); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestVolumeRatioDefaults(t *testing.T) {
	if got := VolumeRatio([]float64{1, 2}, 20); got != 1 {
		t.Fatalf("expected default 1 on short input, got %v", got)
	}
	if got := VolumeRatio([]float64{0, 0, 0, 5}, 2); got != 1 {
		t.Fatalf("expected default 1 on zero baseline, got %v", got)
	}
}

func TestTechnicalTrendClassification(t *testing.T) {
	now := time.Now()
	candles := make([]models.Candle, 60)
	for i := range candles {
		candles[i] = models.Candle{
			Open:      90,
			High:      91,
			Low:       89,
			Close:     90,
			Volume:    1000,
			Timestamp: now.AddDate(0, 0, i-60),
		}
	}

	ta := Technical("AAPL", 100, candles)
	if ta.Trend != "bullish" {
		t.Fatalf("expected bullish above SMA20, got %s", ta.Trend)
	}
	if ta.SMA20 != 90 || ta.SMA50 != 90 {
		t.Fatalf("unexpected SMAs: %v %v", ta.SMA20, ta.SMA50)
	}
	// Flat closes have zero losses, so RSI pins at 100.
	if ta.Momentum != "overbought" {
		t.Fatalf("expected overbought, got %s", ta.Momentum)
	}
	if ta.Volatility != "low" {
		t.Fatalf("expected low volatility on flat series, got %s", ta.Volatility)
	}

	ta = Technical("AAPL", 80, candles)
	if ta.Trend != "bearish" {
		t.Fatalf("expected bearish below SMA20, got %s", ta.Trend)
	}
}
