package usecase

import (
	"fmt"

	"MarketPulse/internal/domain/models"
)

// Fixed additive rule weights. Scores accumulate into separate buy and
// sell totals; the decision runs on their difference.
const (
	weightTrend        = 10.0
	weightLongTrend    = 5.0
	weightRSIExtreme   = 15.0
	weightMACD         = 10.0
	weightSentiment    = 8.0
	weightSentTrend    = 3.0
	weightSentRisk     = 5.0
	weightPattern      = 10.0
	weightVolumeSpike  = 5.0
	minPatternConf     = 0.6
	volumeSpikeRatio   = 2.0
	macdPriceThreshold = 0.001
)

// scoreSignal applies the fixed rule set to the three analyses and
// returns the buy score, sell score, and the contributing reasons.
func scoreSignal(quote *models.Quote, ta *models.TechnicalAnalysis, sa *models.SentimentAnalysis, pa *models.PriceActionAnalysis) (buy, sell float64, reasons []models.SignalReasoning) {
	add := func(toBuy bool, source, desc string, w float64) {
		if toBuy {
			buy += w
		} else {
			sell += w
		}
		reasons = append(reasons, models.SignalReasoning{
			Source:      source,
			Description: desc,
			Weight:      w,
		})
	}

	// Trend vs the short moving average.
	if ta.SMA20 > 0 {
		if quote.Price > ta.SMA20 {
			add(true, "technical", "price above SMA20, short-term uptrend", weightTrend)
		} else {
			add(false, "technical", "price below SMA20, short-term downtrend", weightTrend)
		}
	}
	if ta.SMA50 > 0 {
		if quote.Price > ta.SMA50 {
			add(true, "technical", "price above SMA50, longer-term uptrend", weightLongTrend)
		} else {
			add(false, "technical", "price below SMA50, longer-term downtrend", weightLongTrend)
		}
	}

	// RSI extremes.
	switch {
	case ta.RSI < 30:
		add(true, "technical", fmt.Sprintf("RSI %.1f oversold", ta.RSI), weightRSIExtreme)
	case ta.RSI > 70:
		add(false, "technical", fmt.Sprintf("RSI %.1f overbought", ta.RSI), weightRSIExtreme)
	}

	// MACD histogram against a price-relative threshold.
	macdBar := quote.Price * macdPriceThreshold
	switch {
	case ta.MACDHistogram > macdBar:
		add(true, "technical", "MACD histogram positive and widening", weightMACD)
	case ta.MACDHistogram < -macdBar:
		add(false, "technical", "MACD histogram negative and widening", weightMACD)
	}

	// Sentiment, gated on a minimum news count. Supplier-precomputed
	// sentiment bypasses the count gate since it aggregates upstream.
	if sa.External || sa.NewsCount >= minNewsForSentiment {
		desc := func(dir string) string {
			if sa.External {
				return dir + " supplier sentiment for the symbol"
			}
			return fmt.Sprintf("%s news sentiment across %d items", dir, sa.NewsCount)
		}
		switch sa.Label {
		case "bullish":
			add(true, "sentiment", desc("bullish"), weightSentiment*sa.Confidence)
		case "bearish":
			add(false, "sentiment", desc("bearish"), weightSentiment*sa.Confidence)
		}
		switch sa.Trend {
		case "improving":
			add(true, "sentiment", "sentiment improving over recent items", weightSentTrend)
		case "declining":
			add(false, "sentiment", "sentiment declining over recent items", weightSentTrend)
		}
		if sa.RiskLevel == "high" {
			add(false, "sentiment", "elevated risk keywords in recent news", weightSentRisk)
		}
	}

	// High-confidence candlestick patterns.
	for _, p := range pa.Patterns {
		if p.Confidence < minPatternConf {
			continue
		}
		switch p.Type {
		case "bullish":
			add(true, "price-action", p.Name+" pattern detected", weightPattern*p.Confidence)
		case "bearish":
			add(false, "price-action", p.Name+" pattern detected", weightPattern*p.Confidence)
		}
	}

	// Volume spike confirms whichever way the price is moving.
	if ta.VolumeRatio > volumeSpikeRatio {
		if quote.Change >= 0 {
			add(true, "volume",
				fmt.Sprintf("volume %.1fx average confirms advance", ta.VolumeRatio),
				weightVolumeSpike)
		} else {
			add(false, "volume",
				fmt.Sprintf("volume %.1fx average confirms decline", ta.VolumeRatio),
				weightVolumeSpike)
		}
	}

	return buy, sell, reasons
}
