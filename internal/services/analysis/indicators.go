// Package analysis holds the pure analysis functions: technical indicators,
// news sentiment scoring, and price-action pattern detection. Nothing here
// does I/O; every function is defined for empty or short input and returns
// a documented sentinel instead of failing.
package analysis

import (
	"math"

	"MarketPulse/internal/domain/models"
)

// SMA returns the arithmetic mean of the last period values.
// Returns 0 when fewer than period points exist.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average seeded with the SMA of the
// first period points, multiplier 2/(period+1). Returns 0 when fewer than
// period points exist.
func EMA(values []float64, period int) float64 {
	s := emaSeries(values, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// emaSeries returns one EMA value per input point starting at index
// period-1 (the SMA seed). Empty when fewer than period points exist.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	cur := seed / float64(period)
	out = append(out, cur)

	mult := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		cur = v*mult + cur*(1-mult)
		out = append(out, cur)
	}
	return out
}

// RSI computes Wilder's 14-period-style RSI over closes.
// Returns 50 when fewer than period+1 points exist and 100 when the
// average loss is exactly zero.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the MACD line, its signal line, and the histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the fast-EMA-minus-slow-EMA line over closes, a signalPeriod
// EMA of that line, and the histogram. Zero-valued when fewer than slow
// points exist; signal falls back to the MACD line itself when the line is
// shorter than signalPeriod.
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	fastS := emaSeries(closes, fast)
	slowS := emaSeries(closes, slow)
	if len(slowS) == 0 || len(fastS) == 0 {
		return MACDResult{}
	}

	// Both series end at the last close; align on the tail.
	n := len(slowS)
	if len(fastS) < n {
		n = len(fastS)
	}
	line := make([]float64, n)
	for i := 0; i < n; i++ {
		line[i] = fastS[len(fastS)-n+i] - slowS[len(slowS)-n+i]
	}

	macd := line[len(line)-1]
	sig := macd
	if s := emaSeries(line, signalPeriod); len(s) > 0 {
		sig = s[len(s)-1]
	}
	return MACDResult{MACD: macd, Signal: sig, Histogram: macd - sig}
}

// Bands holds Bollinger band levels.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes period-SMA bands at stdDevs population standard
// deviations. Zero-valued when fewer than period points exist.
func Bollinger(closes []float64, period int, stdDevs float64) Bands {
	if period <= 0 || len(closes) < period {
		return Bands{}
	}
	mid := SMA(closes, period)
	variance := 0.0
	for _, v := range closes[len(closes)-period:] {
		d := v - mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return Bands{Upper: mid + stdDevs*sd, Middle: mid, Lower: mid - stdDevs*sd}
}

// ATR computes the simple average of the true range over the last period
// candles. Returns 0 when fewer than period+1 candles exist.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := c.High - c.Low
		if d := math.Abs(c.High - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(c.Low - prevClose); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / float64(period)
}

// VolumeRatio divides the current volume by the SMA of the preceding
// window volumes, excluding the current one. Defaults to 1 with fewer
// than window+1 points or a zero baseline.
func VolumeRatio(volumes []float64, window int) float64 {
	if window <= 0 || len(volumes) < window+1 {
		return 1
	}
	base := SMA(volumes[:len(volumes)-1], window)
	if base == 0 {
		return 1
	}
	return volumes[len(volumes)-1] / base
}

// Technical runs the full indicator suite over a candle series and
// classifies trend, momentum, and volatility.
func Technical(symbol string, price float64, candles []models.Candle) *models.TechnicalAnalysis {
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	macd := MACD(closes, 12, 26, 9)
	bands := Bollinger(closes, 20, 2)

	ta := &models.TechnicalAnalysis{
		Symbol:        symbol,
		Price:         price,
		SMA20:         SMA(closes, 20),
		SMA50:         SMA(closes, 50),
		EMA12:         EMA(closes, 12),
		EMA26:         EMA(closes, 26),
		RSI:           RSI(closes, 14),
		MACD:          macd.MACD,
		MACDSignal:    macd.Signal,
		MACDHistogram: macd.Histogram,
		UpperBand:     bands.Upper,
		MiddleBand:    bands.Middle,
		LowerBand:     bands.Lower,
		ATR:           ATR(candles, 14),
		VolumeRatio:   VolumeRatio(volumes, 20),
	}

	ta.Trend = "bearish"
	if price > ta.SMA20 {
		ta.Trend = "bullish"
	}

	switch {
	case ta.RSI > 70:
		ta.Momentum = "overbought"
	case ta.RSI < 30:
		ta.Momentum = "oversold"
	default:
		ta.Momentum = "neutral"
	}

	ta.Volatility = "normal"
	if ta.MiddleBand > 0 {
		width := (ta.UpperBand - ta.LowerBand) / ta.MiddleBand
		if width > 0.10 {
			ta.Volatility = "high"
		} else if width < 0.03 {
			ta.Volatility = "low"
		}
	}

	return ta
}
