package usecase

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func TestDecideNoPriorState(t *testing.T) {
	now := time.Now()
	cases := []struct {
		net  float64
		want models.SignalType
	}{
		{20, models.SignalBuy},
		{15, models.SignalBuy},
		{14.9, models.SignalHold},
		{0, models.SignalHold},
		{-14.9, models.SignalHold},
		{-15, models.SignalSell},
		{-20, models.SignalSell},
	}
	for _, c := range cases {
		got := decide(nil, c.net, 15, -15, 10*time.Minute, now)
		if got != c.want {
			t.Fatalf("net %v: got %s, want %s", c.net, got, c.want)
		}
	}
}

func TestDecideHoldsInsideStabilityWindow(t *testing.T) {
	now := time.Now()
	prev := &models.SignalState{
		Type:      models.SignalBuy,
		NetScore:  40,
		Timestamp: now.Add(-5 * time.Minute),
	}

	// Weakening into the neutral zone must not flip to sell.
	got := decide(prev, -10, 15, -15, 10*time.Minute, now)
	if got != models.SignalHold {
		t.Fatalf("expected hold inside window, got %s", got)
	}
}

func TestDecideReversalCrossesOppositeThreshold(t *testing.T) {
	now := time.Now()
	prev := &models.SignalState{
		Type:      models.SignalBuy,
		NetScore:  40,
		Timestamp: now.Add(-5 * time.Minute),
	}

	got := decide(prev, -20, 15, -15, 10*time.Minute, now)
	if got != models.SignalSell {
		t.Fatalf("expected sell on threshold cross, got %s", got)
	}
}

func TestDecideWindowExpiry(t *testing.T) {
	now := time.Now()
	prev := &models.SignalState{
		Type:      models.SignalBuy,
		NetScore:  40,
		Timestamp: now.Add(-15 * time.Minute),
	}

	// Once the window has passed, plain thresholds apply again.
	if got := decide(prev, -20, 15, -15, 10*time.Minute, now); got != models.SignalSell {
		t.Fatalf("expected sell after window, got %s", got)
	}
	if got := decide(prev, -10, 15, -15, 10*time.Minute, now); got != models.SignalHold {
		t.Fatalf("expected hold after window, got %s", got)
	}
}

func TestDecideSellSideSymmetry(t *testing.T) {
	now := time.Now()
	prev := &models.SignalState{
		Type:      models.SignalSell,
		NetScore:  -40,
		Timestamp: now.Add(-2 * time.Minute),
	}

	if got := decide(prev, 10, 15, -15, 10*time.Minute, now); got != models.SignalHold {
		t.Fatalf("expected hold on weakening sell, got %s", got)
	}
	if got := decide(prev, 20, 15, -15, 10*time.Minute, now); got != models.SignalBuy {
		t.Fatalf("expected buy on threshold cross, got %s", got)
	}
	if got := decide(prev, -20, 15, -15, 10*time.Minute, now); got != models.SignalSell {
		t.Fatalf("expected sell to persist, got %s", got)
	}
}

func TestStabilityTableComplete(t *testing.T) {
	types := []models.SignalType{models.SignalBuy, models.SignalSell, models.SignalHold}
	zones := []scoreZone{zoneSell, zoneNeutral, zoneBuy}
	for _, st := range types {
		row, ok := stabilityTable[st]
		if !ok {
			t.Fatalf("missing row for %s", st)
		}
		for _, z := range zones {
			if _, ok := row[z]; !ok {
				t.Fatalf("missing transition for %s zone %d", st, z)
			}
		}
	}
}
