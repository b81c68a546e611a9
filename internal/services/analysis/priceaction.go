package analysis

import (
	"math"
	"sort"

	"MarketPulse/internal/domain/models"
)

const (
	pivotLookback    = 2    // candles on each side of a local extremum
	levelTolerance   = 0.02 // consolidate levels within 2%
	maxLevelsPerSide = 3
	momentumWindow   = 10
	patternWindow    = 5
)

// PriceAction analyzes a candle series for volatility, momentum,
// support/resistance levels, and candlestick patterns.
func PriceAction(symbol string, candles []models.Candle) *models.PriceActionAnalysis {
	pa := &models.PriceActionAnalysis{
		Symbol:     symbol,
		Support:    []models.PriceLevel{},
		Resistance: []models.PriceLevel{},
		Patterns:   []models.CandlePattern{},
	}
	if len(candles) < 2 {
		return pa
	}

	pa.Volatility = annualizedVolatility(candles)
	pa.Momentum = momentum(candles, momentumWindow)
	pa.Support = consolidateLevels(findPivots(candles, false), "support")
	pa.Resistance = consolidateLevels(findPivots(candles, true), "resistance")
	pa.Patterns = DetectPatterns(candles)
	return pa
}

// annualizedVolatility is the stddev of daily close-to-close returns
// scaled by sqrt(252).
func annualizedVolatility(candles []models.Candle) float64 {
	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	variance := 0.0
	for _, r := range returns {
		d := r - m
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance) * math.Sqrt(252)
}

// momentum is the percent change from window candles ago to the latest close.
func momentum(candles []models.Candle, window int) float64 {
	if len(candles) <= window {
		return 0
	}
	base := candles[len(candles)-1-window].Close
	if base == 0 {
		return 0
	}
	return (candles[len(candles)-1].Close - base) / base * 100
}

// findPivots locates local highs (resistance) or lows (support) using a
// fixed lookback/lookahead window.
func findPivots(candles []models.Candle, highs bool) []float64 {
	pivots := []float64{}
	for i := pivotLookback; i < len(candles)-pivotLookback; i++ {
		isPivot := true
		for j := i - pivotLookback; j <= i+pivotLookback; j++ {
			if j == i {
				continue
			}
			if highs && candles[j].High >= candles[i].High {
				isPivot = false
				break
			}
			if !highs && candles[j].Low <= candles[i].Low {
				isPivot = false
				break
			}
		}
		if isPivot {
			if highs {
				pivots = append(pivots, candles[i].High)
			} else {
				pivots = append(pivots, candles[i].Low)
			}
		}
	}
	return pivots
}

// consolidateLevels merges pivots within levelTolerance of each other by
// weighted averaging and keeps the strongest maxLevelsPerSide levels.
func consolidateLevels(pivots []float64, kind string) []models.PriceLevel {
	if len(pivots) == 0 {
		return []models.PriceLevel{}
	}
	sort.Float64s(pivots)

	levels := []models.PriceLevel{}
	cur := models.PriceLevel{Price: pivots[0], Touches: 1, Kind: kind}
	for _, p := range pivots[1:] {
		if cur.Price > 0 && (p-cur.Price)/cur.Price <= levelTolerance {
			// weighted average with the accumulated touches
			cur.Price = (cur.Price*float64(cur.Touches) + p) / float64(cur.Touches+1)
			cur.Touches++
			continue
		}
		levels = append(levels, cur)
		cur = models.PriceLevel{Price: p, Touches: 1, Kind: kind}
	}
	levels = append(levels, cur)

	sort.Slice(levels, func(i, j int) bool { return levels[i].Touches > levels[j].Touches })
	if len(levels) > maxLevelsPerSide {
		levels = levels[:maxLevelsPerSide]
	}
	return levels
}

func body(c models.Candle) float64    { return math.Abs(c.Close - c.Open) }
func green(c models.Candle) bool      { return c.Close > c.Open }
func rangeOf(c models.Candle) float64 { return c.High - c.Low }

func upperShadow(c models.Candle) float64 {
	return c.High - math.Max(c.Open, c.Close)
}

func lowerShadow(c models.Candle) float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// DetectPatterns inspects the trailing candles for classic candlestick
// patterns. Each carries a fixed confidence weight.
func DetectPatterns(candles []models.Candle) []models.CandlePattern {
	patterns := []models.CandlePattern{}
	if len(candles) == 0 {
		return patterns
	}

	window := candles
	if len(window) > patternWindow {
		window = window[len(window)-patternWindow:]
	}
	last := window[len(window)-1]

	if len(window) >= 2 {
		prev := window[len(window)-2]
		if green(last) && !green(prev) &&
			last.Open <= prev.Close && last.Close >= prev.Open {
			patterns = append(patterns, models.CandlePattern{
				Name: "bullish engulfing", Type: "bullish", Confidence: 0.7,
			})
		}
		if !green(last) && green(prev) &&
			last.Open >= prev.Close && last.Close <= prev.Open {
			patterns = append(patterns, models.CandlePattern{
				Name: "bearish engulfing", Type: "bearish", Confidence: 0.7,
			})
		}
	}

	if r := rangeOf(last); r > 0 && body(last) < 0.1*r {
		patterns = append(patterns, models.CandlePattern{
			Name: "doji", Type: "neutral", Confidence: 0.5,
		})
	}

	if b := body(last); b > 0 &&
		lowerShadow(last) > 2*b && upperShadow(last) < 0.5*b {
		patterns = append(patterns, models.CandlePattern{
			Name: "hammer", Type: "bullish", Confidence: 0.6,
		})
	}

	if len(window) >= 3 {
		a, b, c := window[len(window)-3], window[len(window)-2], window[len(window)-1]
		if green(a) && green(b) && green(c) &&
			b.Close > a.Close && c.Close > b.Close {
			patterns = append(patterns, models.CandlePattern{
				Name: "three white soldiers", Type: "bullish", Confidence: 0.8,
			})
		}
		if !green(a) && !green(b) && !green(c) &&
			b.Close < a.Close && c.Close < b.Close {
			patterns = append(patterns, models.CandlePattern{
				Name: "three black crows", Type: "bearish", Confidence: 0.8,
			})
		}
	}

	return patterns
}
