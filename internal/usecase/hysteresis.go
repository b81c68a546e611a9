package usecase

import (
	"time"

	"MarketPulse/internal/domain/models"
)

// scoreZone is the region of the net score relative to the decision
// thresholds.
type scoreZone int

const (
	zoneSell scoreZone = iota
	zoneNeutral
	zoneBuy
)

func zoneOf(net, buyThreshold, sellThreshold float64) scoreZone {
	switch {
	case net >= buyThreshold:
		return zoneBuy
	case net <= sellThreshold:
		return zoneSell
	default:
		return zoneNeutral
	}
}

// stabilityTable maps (previous committed type, current zone) → next type
// while the stability window is still open. Reversing a decision requires
// crossing the opposite threshold; weakening without crossing holds at
// HOLD rather than reverting.
var stabilityTable = map[models.SignalType]map[scoreZone]models.SignalType{
	models.SignalBuy: {
		zoneBuy:     models.SignalBuy,
		zoneNeutral: models.SignalHold,
		zoneSell:    models.SignalSell,
	},
	models.SignalSell: {
		zoneBuy:     models.SignalBuy,
		zoneNeutral: models.SignalHold,
		zoneSell:    models.SignalSell,
	},
	models.SignalHold: {
		zoneBuy:     models.SignalBuy,
		zoneNeutral: models.SignalHold,
		zoneSell:    models.SignalSell,
	},
}

// decide resolves the next signal type from the net score, the previous
// committed state, and the stability window. A symbol with no prior state,
// or whose state is older than the window, uses plain thresholds.
func decide(prev *models.SignalState, net float64, buyThreshold, sellThreshold float64, window time.Duration, now time.Time) models.SignalType {
	zone := zoneOf(net, buyThreshold, sellThreshold)

	if prev != nil && now.Sub(prev.Timestamp) < window {
		return stabilityTable[prev.Type][zone]
	}

	switch zone {
	case zoneBuy:
		return models.SignalBuy
	case zoneSell:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}
