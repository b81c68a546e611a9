package usecase

import (
	"hash/fnv"
	"math"
	"time"

	"MarketPulse/internal/domain/models"
)

const syntheticDays = 60

// syntheticSeed derives a stable seed from the symbol and the current
// price, so repeated calls for the same inputs produce the same series.
func syntheticSeed(symbol string, price float64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64() ^ uint64(math.Round(price*100))
}

// splitmix64 is a small deterministic generator; state advances per call.
type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// float returns a value in [0, 1).
func (s *splitmix64) float() float64 {
	return float64(s.next()>>11) / float64(1<<53)
}

// syntheticCandles fabricates a daily series ending at the current price.
// The walk is anchored so the final close equals price exactly; the rest
// is a bounded random walk seeded from the symbol and price.
func syntheticCandles(symbol string, price float64, now time.Time) []models.Candle {
	if price <= 0 {
		return nil
	}

	rng := &splitmix64{state: syntheticSeed(symbol, price)}

	closes := make([]float64, syntheticDays)
	closes[0] = price
	for i := 1; i < syntheticDays; i++ {
		ret := (rng.float() - 0.5) * 0.04
		closes[i] = closes[i-1] * (1 + ret)
	}

	// Rescale so the walk ends at the live price.
	scale := price / closes[syntheticDays-1]
	for i := range closes {
		closes[i] *= scale
	}

	day := now.Truncate(24 * time.Hour)
	candles := make([]models.Candle, syntheticDays)
	for i := 0; i < syntheticDays; i++ {
		c := closes[i]
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi := math.Max(open, c) * (1 + rng.float()*0.01)
		lo := math.Min(open, c) * (1 - rng.float()*0.01)
		candles[i] = models.Candle{
			Timestamp: day.AddDate(0, 0, i-syntheticDays+1),
			Open:      open,
			High:      hi,
			Low:       lo,
			Close:     c,
			Volume:    1_000_000 * (0.5 + rng.float()),
		}
	}
	return candles
}
