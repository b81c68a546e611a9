package usecase

import (
	"math"
	"testing"

	"MarketPulse/internal/domain/models"
)

func TestScoreSignalTechnicalBuy(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 100}
	ta := &models.TechnicalAnalysis{
		SMA20:         95,
		SMA50:         90,
		RSI:           20,
		MACDHistogram: 0.5,
		VolumeRatio:   1,
	}
	sa := &models.SentimentAnalysis{Label: "neutral"}
	pa := &models.PriceActionAnalysis{}

	buy, sell, reasons := scoreSignal(quote, ta, sa, pa)
	if buy != 40 {
		t.Fatalf("expected buy 40, got %v", buy)
	}
	if sell != 0 {
		t.Fatalf("expected sell 0, got %v", sell)
	}
	if len(reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %d", len(reasons))
	}
}

func TestScoreSignalTechnicalSell(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 80}
	ta := &models.TechnicalAnalysis{
		SMA20:         95,
		SMA50:         90,
		RSI:           80,
		MACDHistogram: -0.5,
		VolumeRatio:   1,
	}
	sa := &models.SentimentAnalysis{Label: "neutral"}
	pa := &models.PriceActionAnalysis{}

	buy, sell, _ := scoreSignal(quote, ta, sa, pa)
	if buy != 0 || sell != 40 {
		t.Fatalf("expected 0/40, got %v/%v", buy, sell)
	}
}

func TestScoreSignalSentimentGate(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 100}
	ta := &models.TechnicalAnalysis{RSI: 50, VolumeRatio: 1}
	pa := &models.PriceActionAnalysis{}

	// Below the minimum news count sentiment contributes nothing.
	sa := &models.SentimentAnalysis{Label: "bullish", Confidence: 1, NewsCount: 2}
	buy, _, _ := scoreSignal(quote, ta, sa, pa)
	if buy != 0 {
		t.Fatalf("expected gated sentiment, got buy %v", buy)
	}

	sa.NewsCount = 3
	buy, _, _ = scoreSignal(quote, ta, sa, pa)
	if buy != 8 {
		t.Fatalf("expected confidence-scaled sentiment 8, got %v", buy)
	}
}

func TestScoreSignalExternalSentimentBypassesGate(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 100}
	ta := &models.TechnicalAnalysis{RSI: 50, VolumeRatio: 1}
	pa := &models.PriceActionAnalysis{}

	// Supplier-precomputed sentiment carries no local item count but still
	// scores.
	sa := &models.SentimentAnalysis{Label: "bullish", Confidence: 1, External: true}
	buy, sell, reasons := scoreSignal(quote, ta, sa, pa)
	if buy != 8 || sell != 0 {
		t.Fatalf("expected 8/0, got %v/%v", buy, sell)
	}
	if len(reasons) != 1 || reasons[0].Source != "sentiment" {
		t.Fatalf("expected one sentiment reason, got %+v", reasons)
	}
}

func TestScoreSignalSentimentTrendAndRisk(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 100}
	ta := &models.TechnicalAnalysis{RSI: 50, VolumeRatio: 1}
	pa := &models.PriceActionAnalysis{}
	sa := &models.SentimentAnalysis{
		Label:      "bearish",
		Confidence: 0.5,
		Trend:      "declining",
		RiskLevel:  "high",
		NewsCount:  5,
	}

	buy, sell, _ := scoreSignal(quote, ta, sa, pa)
	if buy != 0 {
		t.Fatalf("expected no buy, got %v", buy)
	}
	// 8*0.5 sentiment + 3 trend + 5 risk
	if sell != 12 {
		t.Fatalf("expected sell 12, got %v", sell)
	}
}

func TestScoreSignalPatternConfidenceFloor(t *testing.T) {
	quote := &models.Quote{Symbol: "AAPL", Price: 100}
	ta := &models.TechnicalAnalysis{RSI: 50, VolumeRatio: 1}
	sa := &models.SentimentAnalysis{Label: "neutral"}
	pa := &models.PriceActionAnalysis{
		Patterns: []models.CandlePattern{
			{Name: "doji", Type: "neutral", Confidence: 0.5},
			{Name: "hammer", Type: "bullish", Confidence: 0.5},
			{Name: "three white soldiers", Type: "bullish", Confidence: 0.8},
		},
	}

	buy, sell, _ := scoreSignal(quote, ta, sa, pa)
	if sell != 0 {
		t.Fatalf("expected no sell, got %v", sell)
	}
	if math.Abs(buy-8) > 1e-9 {
		t.Fatalf("expected only the high-confidence pattern (8), got %v", buy)
	}
}

func TestScoreSignalVolumeSpikeFollowsDirection(t *testing.T) {
	ta := &models.TechnicalAnalysis{RSI: 50, VolumeRatio: 3}
	sa := &models.SentimentAnalysis{Label: "neutral"}
	pa := &models.PriceActionAnalysis{}

	up := &models.Quote{Symbol: "AAPL", Price: 100, Change: 2}
	buy, sell, _ := scoreSignal(up, ta, sa, pa)
	if buy != 5 || sell != 0 {
		t.Fatalf("expected volume to confirm advance, got %v/%v", buy, sell)
	}

	down := &models.Quote{Symbol: "AAPL", Price: 100, Change: -2}
	buy, sell, _ = scoreSignal(down, ta, sa, pa)
	if buy != 0 || sell != 5 {
		t.Fatalf("expected volume to confirm decline, got %v/%v", buy, sell)
	}
}

func TestPriceTargets(t *testing.T) {
	// Strength 36, normal volatility: move = 2% + 36% of 6%.
	target, stop := priceTargets(models.SignalBuy, 100, 36, 0.25)
	if target != 104.16 {
		t.Fatalf("expected target 104.16, got %v", target)
	}
	if stop != 97.92 {
		t.Fatalf("expected stop 97.92, got %v", stop)
	}

	// Sell mirrors the offsets.
	target, stop = priceTargets(models.SignalSell, 100, 36, 0.25)
	if target != 95.84 || stop != 102.08 {
		t.Fatalf("unexpected sell targets %v/%v", target, stop)
	}
}

func TestPriceTargetsVolatilityScaling(t *testing.T) {
	calm, _ := priceTargets(models.SignalBuy, 100, 50, 0.10)
	normal, _ := priceTargets(models.SignalBuy, 100, 50, 0.25)
	wild, _ := priceTargets(models.SignalBuy, 100, 50, 0.50)

	if !(calm < normal && normal < wild) {
		t.Fatalf("expected targets to widen with volatility: %v %v %v", calm, normal, wild)
	}
}
